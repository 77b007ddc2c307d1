package file

import (
	"io"
)

const (
	LocalFileStorage = "LocalFile"
	FTPFileStorage   = "FTP"
)

const (
	OKFlag = "OK"
	MD5    = "MD5"
	SHA1   = "SHA1"
	SHA256 = "SHA256"
	SHA512 = "SHA512"
)

//GzipSuffix files with this suffix are compressed on write and decompressed on read
const GzipSuffix = ".gz"

//FileStorage where inputs are read from and checkpoints are written to
type FileStorage interface {
	Exists(fileName string) (ok bool, err error)
	Open(fileName string) (reader io.ReadCloser, err error)
	Create(fileName string) (writer io.WriteCloser, err error)
	//Remove deletes fileName, a missing file is not an error
	Remove(fileName string) error
	//Glob returns the names matching pattern, in the syntax of path.Match
	Glob(pattern string) (names []string, err error)
}

type ChecksumVerifier interface {
	Verify(fs FileStorage, fileName string) (bool, error)
}

type ChecksumFlusher interface {
	Checksum(fs FileStorage, fileName string) error
}

type Checksumer interface {
	ChecksumVerifier
	ChecksumFlusher
}

//Encoder a snapshot that can serialize itself
type Encoder interface {
	Encode(w io.Writer) error
}
