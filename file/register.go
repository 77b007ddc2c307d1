package file

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"sync"
)

var checksumerMu sync.RWMutex
var checksumers = map[string]Checksumer{}

//RegisterChecksumer register a custom Checksumer under key
func RegisterChecksumer(key string, ch Checksumer) {
	checksumerMu.Lock()
	defer checksumerMu.Unlock()
	checksumers[key] = ch
}

//GetChecksumer get Checksumer by type
func GetChecksumer(key string) Checksumer {
	switch key {
	case OKFlag:
		return &OKFlagChecksumer{}
	case MD5:
		return &digestChecksumer{alg: MD5, newHash: md5.New}
	case SHA1:
		return &digestChecksumer{alg: SHA1, newHash: sha1.New}
	case SHA256:
		return &digestChecksumer{alg: SHA256, newHash: sha256.New}
	case SHA512:
		return &digestChecksumer{alg: SHA512, newHash: sha512.New}
	default:
		checksumerMu.RLock()
		defer checksumerMu.RUnlock()
		return checksumers[key]
	}
}
