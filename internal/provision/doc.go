// Package provision makes the packaged Northwind store available to an
// application.
//
// The packaged file ships read-only next to the application. OpenReadOnly
// opens it in place. Bootstrap copies it to a writable destination, and
// OpenWritable bootstraps and then opens the copy for mutation.
//
// A copy is staged next to the destination and renamed into place, so an
// interrupted bootstrap leaves either the previous file or the new one,
// never a truncated store.
package provision
