// Package gitrepo inspects git repositories without shelling out.
//
// Inspector answers read-only questions (is this a repository, where does
// HEAD point, what URL does a remote use) through go-git, and ParseRemoteURL
// turns remote URLs into owner/repository identifiers for reporting.
package gitrepo
