package datastore

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Engine key layout for a store named S:
//
//	S/keys          root set of every live external key
//	S/keys/{key}    directory entry (hash)
//	S/ids           unique id counters (hash)
//	S/data/{uuid}   data path of a key; values live in chunks {path}:{i},
//	                sets and queues live at the path itself
const (
	keysSegment = "/keys"
	dataSegment = "/data/"
	idsSegment  = "/ids"
)

var dataPathSpace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("datastore.data-path"))

func rootSetPath(store string) string {
	return store + keysSegment
}

func entryPath(store, key string) string {
	return store + keysSegment + "/" + key
}

func idsPath(store string) string {
	return store + idsSegment
}

// dataPath derives the storage path of key. It is a pure function of the
// store name and the key, so any process computes the same path.
func dataPath(store, key string) string {
	name := make([]byte, 0, len(store)+len(key)+1)
	name = append(name, store...)
	name = append(name, 0)
	name = append(name, key...)
	return store + dataSegment + uuid.NewSHA1(dataPathSpace, name).String()
}

func chunkPath(dataPath string, i int64) string {
	return dataPath + ":" + strconv.FormatInt(i, 10)
}

func validStoreName(name string) bool {
	return name != "" && !strings.ContainsAny(name, " \t\r\n")
}
