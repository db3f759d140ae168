// Package repositories implements SQLite persistence for the session audit log.
//
// Key Implementations:
//   - [EventRepository] : append-only [models.SessionEvent] storage with user/kind filtering
//   - [EventRecorder] : a session observer that writes lifecycle events through an [EventRepository]
//
// Token material is never written; events carry only the user id, the transition kind and a short detail.
package repositories
