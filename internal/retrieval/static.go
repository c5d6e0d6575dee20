package retrieval

import (
	"context"

	"github.com/medassist/medassist/internal/knowledge"
)

// BackupTable answers from the pre-written entries of the knowledge base.
type BackupTable struct {
	kb *knowledge.Base
}

// NewBackupTable creates the static provider.
func NewBackupTable(kb *knowledge.Base) *BackupTable {
	return &BackupTable{kb: kb}
}

// Name implements Provider.
func (b *BackupTable) Name() string { return "static" }

// Attempt implements Provider. Only an exact lowercase key matches.
func (b *BackupTable) Attempt(_ context.Context, topic string) (Answer, error) {
	body, ok := b.kb.BackupAnswer(topic)
	if !ok {
		return Answer{}, ErrNoResult
	}
	return Answer{Body: body + "\n"}, nil
}
