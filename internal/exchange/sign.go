package exchange

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"hash"
	"strings"
)

// HMAC-хэши, которыми подписывают запросы биржи
var (
	MD5    = md5.New
	SHA256 = sha256.New
	SHA384 = sha512.New384
)

// HmacHex - hex(HMAC(secret, msg))
func HmacHex(h func() hash.Hash, secret, msg string) string {
	mac := hmac.New(h, []byte(secret))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

// HashBase64 - base64(hash(msg)) без ключа
func HashBase64(h func() hash.Hash, msg string) string {
	d := h()
	d.Write([]byte(msg))
	return base64.StdEncoding.EncodeToString(d.Sum(nil))
}

// CheckAddress отклоняет пустой адрес и адрес с пробелами
func (b *Base) CheckAddress(address string) error {
	if address == "" || strings.ContainsAny(address, " \t\n") {
		return NewError(InvalidAddress, b.cfg.ID, "address is invalid or has less than 1 characters: %q", address)
	}
	return nil
}
