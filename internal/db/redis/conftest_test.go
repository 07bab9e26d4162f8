package redis

import (
	"errors"
	"testing"

	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/tablens/internal/db"
)

const (
	testCollection = "columns_4"
	testIndex      = "tablens:columns_4:idx"
	testPrefix     = "tablens:columns_4:"
	testPointKey   = "tablens:columns_4:6f1c0a52-8a3e-5d2b-9c1e-2b7f3f0c9a11"
	testMetaKey    = "tablens:collection:columns_4"
	testLockKey    = "tablens:lock:dataset:0b5e1c2d-3f4a-4e6b-8c7d-9e0f1a2b3c4d"
)

func newMockStore(t *testing.T) (*Store, *mock.Client) {
	t.Helper()
	c := mock.NewClient(gomock.NewController(t))
	return NewStoreForTest(c), c
}

// command matches a built command by its name.
func command(name string) gomock.Matcher {
	return mock.MatchFn(func(cmd []string) bool { return len(cmd) > 0 && cmd[0] == name })
}

func isDBError(err error) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr)
}
