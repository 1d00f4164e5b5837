// Package repo asks a remote repo to pull and persist records.
//
// An insert command is a signed Interest
//
//	<repoPrefix>/insert/<RepoCommandParameter>/<ParametersSha256Digest>
//
// signed with the command identity, which is distinct from the identity
// that signs records. The repo answers with a RepoCommandResponse and then
// fetches the record from the collector's cache. The outcome of each
// announcement is reported once; by default a failed command is not
// retried and the next collection cycle produces the next attempt.
package repo
