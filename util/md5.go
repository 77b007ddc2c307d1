package util

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

//MD5 calculate md5 for a string
func MD5(str string) string {
	b := md5.Sum([]byte(str))
	return fmt.Sprintf("%x", b)
}

//SaltedMD5 hex md5 of str followed by salt
func SaltedMD5(str string, salt []byte) string {
	h := md5.New()
	h.Write([]byte(str))
	h.Write(salt)
	return hex.EncodeToString(h.Sum(nil))
}
