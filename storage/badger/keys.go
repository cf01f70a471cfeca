package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/sessionrag/core"
)

// Key prefixes for different data types
const (
	sessionRecordPrefix   = "sesrec"
	documentRecordPrefix  = "docrec"
	documentSessionPrefix = "docses"
	documentIDSeq         = "docrecseq"
)

// makeSessionKey generates a key for a session by ID.
func makeSessionKey(id core.SessionID) []byte {
	return []byte(fmt.Sprintf("%s:%s", sessionRecordPrefix, id))
}

// makeDocumentKey generates a key for a document by ID.
// Format: prefix:id with the ID in BigEndian so keys iterate in ID order.
func makeDocumentKey(id core.ID) []byte {
	prefix := []byte(documentRecordPrefix + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// documentKeyPrefix is the prefix shared by all primary document keys.
func documentKeyPrefix() []byte {
	return []byte(documentRecordPrefix + ":")
}

// makeDocumentSessionKey generates a composite key for the session index.
// Format: prefix:sessionID:docID
func makeDocumentSessionKey(sessionID core.SessionID, docID core.ID) []byte {
	prefix := makePartialDocumentSessionKey(sessionID)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(docID))
	return buf
}

// makePartialDocumentSessionKey generates the prefix for one session's index entries.
// Session IDs never contain ':' so one session prefix cannot cover another.
func makePartialDocumentSessionKey(sessionID core.SessionID) []byte {
	return []byte(fmt.Sprintf("%s:%s:", documentSessionPrefix, sessionID))
}

// makeCheckpointKey generates a key for processor checkpoints.
func makeCheckpointKey(processorType string) []byte {
	return []byte(fmt.Sprintf("%s:chkpt", processorType))
}
