/*
 * MailPump - Copyright (C) 2022 Zane van Iperen.
 *    Contact: zane@zanevaniperen.com
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 2, and only
 * version 2 as published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program; if not, write to the Free Software
 * Foundation, Inc., 59 Temple Place, Suite 330, Boston, MA  02111-1307  USA
 */

// Package obscure hides hardcoded OAuth2 client secrets from casual
// grep/strings inspection of the binary. This is NOT encryption: the key
// is fixed and public. Anyone who wants the secret can get it; this just
// stops it showing up as plaintext.
package obscure

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

var cryptKey = []byte{
	0x9c, 0x93, 0x5b, 0x48, 0x73, 0x0a, 0x55, 0x4d,
	0x6b, 0xfd, 0x7c, 0x63, 0xc8, 0x86, 0xa9, 0x2b,
	0xd3, 0x90, 0x19, 0x8e, 0xb8, 0x12, 0x8a, 0xfb,
	0xf4, 0xde, 0x16, 0x2b, 0x8b, 0x95, 0xf6, 0x38,
}

func block() (cipher.Block, error) {
	return aes.NewCipher(cryptKey)
}

// Obscure encrypts plaintext with a fixed key/random IV and returns it as
// URL-safe base64, the reverse of Reveal.
func Obscure(plaintext string) (string, error) {
	blk, err := block()
	if err != nil {
		return "", err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	buf := make([]byte, len(plaintext))
	cipher.NewCTR(blk, iv).XORKeyStream(buf, []byte(plaintext))

	return base64.RawURLEncoding.EncodeToString(append(iv, buf...)), nil
}

// Reveal decodes and decrypts a string produced by Obscure.
func Reveal(ciphertext string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}

	if len(raw) < aes.BlockSize {
		return "", errors.New("obscure: ciphertext too short")
	}

	blk, err := block()
	if err != nil {
		return "", err
	}

	iv, buf := raw[:aes.BlockSize], raw[aes.BlockSize:]
	out := make([]byte, len(buf))
	cipher.NewCTR(blk, iv).XORKeyStream(out, buf)

	return string(out), nil
}

// MustReveal is Reveal for hardcoded constants that must decode correctly;
// a decode failure here is a programming error, not a runtime one.
func MustReveal(ciphertext string) string {
	s, err := Reveal(ciphertext)
	if err != nil {
		panic(err)
	}
	return s
}
