package inmemorydb_test

import (
	"fmt"
	"testing"

	"github.com/alexandre-normand/chatrelay/store"
	"github.com/alexandre-normand/chatrelay/store/inmemorydb"
	"github.com/alexandre-normand/chatrelay/store/mocks"
	"github.com/stretchr/testify/assert"
)

func TestNewWithErrorLoadingPersistentContent(t *testing.T) {
	ms := new(mocks.Storer)
	ms.On("Scan").Return(nil, fmt.Errorf("error with persistent db"))

	_, err := inmemorydb.New(ms)
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "error with persistent db")
	}
}

func TestGetServedFromMemory(t *testing.T) {
	ms := new(mocks.Storer)
	defer ms.AssertExpectations(t)
	ms.On("Scan").Return(map[string]string{"slackrelay": "[]"}, nil)

	imdb, err := inmemorydb.New(ms)
	if assert.Nil(t, err) {
		v, err := imdb.GetString("slackrelay")
		assert.Nil(t, err)
		assert.Equal(t, "[]", v)

		ms.AssertNotCalled(t, "GetString", "slackrelay")
	}
}

func TestGetMissingKey(t *testing.T) {
	ms := new(mocks.Storer)
	ms.On("Scan").Return(map[string]string{}, nil)

	imdb, err := inmemorydb.New(ms)
	if assert.Nil(t, err) {
		v, err := imdb.GetString("slackrelay")
		assert.Equal(t, "", v)
		assert.True(t, store.IsNotFound(err))
	}
}

func TestPutWritesThrough(t *testing.T) {
	ms := new(mocks.Storer)
	defer ms.AssertExpectations(t)
	ms.On("Scan").Return(map[string]string{}, nil)
	ms.On("PutString", "slackrelay", `[{"channelid":"C1"}]`).Return(nil)

	imdb, err := inmemorydb.New(ms)
	if assert.Nil(t, err) {
		assert.Nil(t, imdb.PutString("slackrelay", `[{"channelid":"C1"}]`))

		v, err := imdb.GetString("slackrelay")
		assert.Nil(t, err)
		assert.Equal(t, `[{"channelid":"C1"}]`, v)
	}
}

func TestFailedPutLeavesMemoryUnchanged(t *testing.T) {
	ms := new(mocks.Storer)
	ms.On("Scan").Return(map[string]string{"slackrelay": "[]"}, nil)
	ms.On("PutString", "slackrelay", "[1]").Return(fmt.Errorf("error with persistent db"))

	imdb, err := inmemorydb.New(ms)
	if assert.Nil(t, err) {
		assert.Error(t, imdb.PutString("slackrelay", "[1]"))

		v, err := imdb.GetString("slackrelay")
		assert.Nil(t, err)
		assert.Equal(t, "[]", v)
	}
}

func TestDeleteWritesThrough(t *testing.T) {
	ms := new(mocks.Storer)
	defer ms.AssertExpectations(t)
	ms.On("Scan").Return(map[string]string{"slackrelay": "[]"}, nil)
	ms.On("DeleteString", "slackrelay").Return(nil)

	imdb, err := inmemorydb.New(ms)
	if assert.Nil(t, err) {
		assert.Nil(t, imdb.DeleteString("slackrelay"))

		_, err := imdb.GetString("slackrelay")
		assert.True(t, store.IsNotFound(err))
	}
}

func TestScanReturnsCopy(t *testing.T) {
	ms := new(mocks.Storer)
	ms.On("Scan").Return(map[string]string{"a": "1"}, nil)

	imdb, err := inmemorydb.New(ms)
	if assert.Nil(t, err) {
		entries, err := imdb.Scan()
		assert.Nil(t, err)
		entries["b"] = "2"

		again, err := imdb.Scan()
		assert.Nil(t, err)
		assert.Equal(t, map[string]string{"a": "1"}, again)
	}
}

func TestCloseClosesPersistentStorage(t *testing.T) {
	ms := new(mocks.Storer)
	defer ms.AssertExpectations(t)
	ms.On("Scan").Return(map[string]string{}, nil)
	ms.On("Close").Return(nil)

	imdb, err := inmemorydb.New(ms)
	if assert.Nil(t, err) {
		assert.Nil(t, imdb.Close())
	}
}
