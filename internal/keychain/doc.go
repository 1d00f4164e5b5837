// Package keychain provides the signing identities the collector uses.
//
// Two identities are kept apart on purpose: the data identity signs the
// sensor records (data authenticity) and the command identity signs repo
// insert commands (command authorisation). Both are Ed25519 keys stored
// in the collector's state directory, created on first use and wrapped
// in the ndnd Ed25519 signer.
package keychain
