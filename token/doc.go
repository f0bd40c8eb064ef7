// Package token signs and verifies the compact signed payloads used as
// access and refresh credentials. The two kinds use distinct secrets and
// expirations; every issuance mints a fresh jti, which is what makes
// single-use rotation and targeted blacklisting possible.
package token
