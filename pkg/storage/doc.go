// Package storage writes downloaded avatars to disk.
//
// Files are written to a temporary sibling, synced, closed and renamed into
// place, so a reader never observes a partial image under the final name.
// A failed write leaves no temporary file behind.
//
// Usage:
//
//	manager, err := storage.NewManager("images")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	n, err := manager.Save(body, filepath.Join("images", "5A2B.jpg"))
package storage
