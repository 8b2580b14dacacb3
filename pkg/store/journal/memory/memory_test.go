package memory

import (
	"testing"

	"github.com/marmos91/pldmfs/pkg/store/journal"
	journaltesting "github.com/marmos91/pldmfs/pkg/store/journal/testing"
)

func TestMemoryJournal(t *testing.T) {
	suite := &journaltesting.JournalTestSuite{
		NewJournal: func(t *testing.T) journal.Journal { return New() },
	}
	suite.Run(t)
}
