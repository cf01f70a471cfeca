// Package sessions manages the lifecycle of conversation sessions.
//
// A session is the scoping boundary for retrieval: every conversation saved
// through a session becomes a document tagged with the session id, and
// queries only ever see documents of the session they name. Deleting a
// session is a hard delete that also removes its documents from the vector
// index.
package sessions
