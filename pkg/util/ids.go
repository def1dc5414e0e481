// Package util contains any functions used across the application that don't match
// any other package
package util

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	idCharset   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	idLength = 16
)

// NewID returns a random identifier used as a primary key for users and products
func NewID() (string, error) {
	return gonanoid.Generate(idCharset, idLength)
}

// RandomCode returns an uppercase alphanumeric code of length n read from crypto/rand
func RandomCode(n int) (string, error) {
	return gonanoid.Generate(codeCharset, n)
}

// RandomString returns an alphanumeric string of length n read from crypto/rand
func RandomString(n int) (string, error) {
	return gonanoid.Generate(idCharset, n)
}
