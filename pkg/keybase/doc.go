// Package keybase resolves a validator identity to its Keybase avatar.
//
// Resolution takes two lookups:
//
//	key/fetch.json?pgp_key_ids=<identity>          -> keys[0].fingerprint
//	user/lookup.json?key_fingerprint=<fingerprint> -> them[0].pictures.primary.url
//
// The profile lookup answers with "them" either as a list or as a single
// object; both shapes are accepted. Any failure along the way yields an error
// wrapping ErrUnresolvable, never a panic.
package keybase
