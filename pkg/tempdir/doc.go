/*
Package tempdir implements the Temp Resource Directory component: scoped
acquisition of a filesystem directory with guaranteed release on every exit
path, supporting relative-path ingestion of files and directories from the
host filesystem.

# Usage

	d, err := tempdir.New("")
	if err != nil {
		return err
	}
	defer d.Cleanup()

	if err := d.Include("./certs/ca.pem", "etc/ssl/ca.pem", false); err != nil {
		return err
	}

Directories containing ".." in their requested destination are rejected
before any filesystem mutation. Including a directory copies its tree
recursively; including with executable=true unions the destination file's
mode with user/group/other execute bits, matching a chmod +x.

# KeyedDir

The Container-System Build Driver (pkg/consys) volume-includes resources
into more than one container, sometimes into the same in-image directory
path on different containers. KeyedDir hands out one independent Dir per
(container, directory) pair so those includes never collide:

	k := tempdir.NewKeyedDir("")
	defer k.CleanupAll()

	d, err := k.ForContainerDir("root", "/etc/certs")

# Design

Cleanup is idempotent and safe to call from a deferred statement even after
an explicit earlier call, so callers can defer Cleanup() immediately after a
successful New() without tracking whether a later code path already
released it.
*/
package tempdir
