package tsubakuro

import (
	"time"

	"gopkg.in/ini.v1"
)

// LoadConnectionOptionFromINI reads a connection profile from an INI file,
// the declarative-config-file idiom the pack uses for connection-like
// settings (gocanopen loads its object-dictionary config the same way).
// Expected shape:
//
//	[connection]
//	endpoint = tcp://localhost:12345
//	application_name = myapp
//	label = my-session
//	default_timeout = 30s
func LoadConnectionOptionFromINI(path string) (*ConnectionOption, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, ClientError("failed to load connection profile "+path, err)
	}

	section := cfg.Section("connection")
	endpointStr := section.Key("endpoint").String()
	if endpointStr == "" {
		return nil, ClientError("connection profile " + path + " missing endpoint")
	}
	endpoint, err := ParseEndpoint(endpointStr)
	if err != nil {
		return nil, err
	}

	opt := NewConnectionOption(endpoint)
	if name := section.Key("application_name").String(); name != "" {
		opt.WithApplicationName(name)
	}
	if label := section.Key("label").String(); label != "" {
		opt.WithLabel(label)
	}
	if timeoutStr := section.Key("default_timeout").String(); timeoutStr != "" {
		d, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return nil, ClientError("connection profile "+path+" has invalid default_timeout", err)
		}
		opt.WithDefaultTimeout(d)
	}
	return opt, nil
}
