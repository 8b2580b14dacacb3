package memory

import (
	"testing"

	"github.com/marmos91/pldmfs/pkg/store/content"
	storetesting "github.com/marmos91/pldmfs/pkg/store/content/testing"
)

func TestMemoryStore(t *testing.T) {
	suite := &storetesting.StoreTestSuite{
		NewStore: func(t *testing.T) content.Store {
			return New()
		},
	}
	suite.Run(t)
}
