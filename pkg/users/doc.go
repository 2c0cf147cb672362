// Package users implements the identity core of userhub: the user model and
// its credential store, password hashing, token issuance and verification,
// the uniqueness fast-path validator, and the service orchestrating them.
//
// Components are constructed explicitly and passed as arguments; the package
// keeps no global state. All outward user representations are redacted, so
// the stored password hash never leaves the package.
package users
