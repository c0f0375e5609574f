// Package source provides read access to the tree a build runs against.
//
// A tree is either a local directory or one revision of a remote git
// repository. Both are exposed through the [Provider] interface: individual
// files are read for build file discovery, and the whole tree is either
// bind-mounted into the sandbox ([Provider.Workdir]) or streamed into it as
// a tar archive ([Provider.Archive]).
//
// Remote trees are fetched with the git binary into a bare mirror under the
// user cache directory. The ref named in the location's fragment is resolved
// once, so every read during a build sees the same revision.
//
// Example usage:
//
//	loc, err := source.Parse("https://example.com/repo.git#main")
//	if err != nil {
//	    return err
//	}
//
//	src, err := source.Open(ctx, loc, source.Options{Logger: log})
//	if err != nil {
//	    return err
//	}
//
//	rc, err := src.ReadFile(ctx, ".cibox.yml")
package source
