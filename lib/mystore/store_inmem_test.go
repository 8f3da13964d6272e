package mystore

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type athlete struct {
	UID  string
	Name string
	Age  int
}

var (
	runner = athlete{UID: "123", Name: "Kipchoge", Age: 40}
)

func TestStore(t *testing.T) {
	c := context.TODO()
	as, cleanup, err := newInMemoryStore[athlete](c)
	assert.NoError(t, err)
	defer cleanup()

	t.Run("Get not found", func(t *testing.T) {
		_, found, err := as.Get(c, runner.UID)
		assert.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Put", func(t *testing.T) {
		err = as.Put(c, runner.UID, runner)
		assert.NoError(t, err)
	})

	t.Run("Get found", func(t *testing.T) {
		a, found, err := as.Get(c, runner.UID)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, athlete{UID: "123", Name: "Kipchoge", Age: 40}, a)
	})

	t.Run("List", func(t *testing.T) {
		all, err := as.List(c)
		assert.NoError(t, err)
		assert.Equal(t, []athlete{runner}, all)
	})

	t.Run("Put and get within transaction", func(t *testing.T) {
		other := athlete{UID: "456", Name: "Hassan", Age: 32}

		err := as.RunInTransaction(c, func(c context.Context) error {
			err := as.Put(c, other.UID, other)
			assert.NoError(t, err)

			got, found, err := as.Get(c, other.UID)
			assert.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, other, got)

			return nil
		})
		assert.NoError(t, err)
	})

	t.Run("Failing transaction rolls back with error", func(t *testing.T) {
		err := as.RunInTransaction(c, func(c context.Context) error {
			return fmt.Errorf("something broke")
		})
		assert.Error(t, err)
	})
}
