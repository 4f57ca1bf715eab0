package tsubakuro

// CommitType selects how strongly a commit is acknowledged before the
// request completes. Grounded on original_source/transaction/commit_option.rs.
type CommitType int

const (
	// CommitTypeUnspecified defers to the server's default durability.
	CommitTypeUnspecified CommitType = iota
	CommitTypeAccepted
	CommitTypeAvailable
	CommitTypeStored
	CommitTypePropagated
)

// CommitOption bundles a CommitType with the auto-dispose flag that
// controls whether the transaction handle is released immediately after a
// successful commit.
type CommitOption struct {
	commitType  CommitType
	autoDispose bool
}

// NewCommitOption builds a CommitOption with the server-default commit type
// and auto-dispose left off.
func NewCommitOption() CommitOption {
	return CommitOption{commitType: CommitTypeUnspecified}
}

// WithCommitType sets the notification strength to wait for.
func (c CommitOption) WithCommitType(t CommitType) CommitOption {
	c.commitType = t
	return c
}

// WithAutoDispose sets whether the transaction is disposed automatically
// once the commit succeeds.
func (c CommitOption) WithAutoDispose(autoDispose bool) CommitOption {
	c.autoDispose = autoDispose
	return c
}

// CommitType returns the configured commit notification strength.
func (c CommitOption) CommitType() CommitType { return c.commitType }

// AutoDispose reports whether the transaction auto-disposes on commit.
func (c CommitOption) AutoDispose() bool { return c.autoDispose }
