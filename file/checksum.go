package file

import (
	"fmt"
	"hash"
	"io"
	"strings"
)

//OKFlagChecksumer generate and verify an empty file with '.ok' suffix indicating the data file completed
type OKFlagChecksumer struct {
}

func (ch *OKFlagChecksumer) Verify(fs FileStorage, fileName string) (bool, error) {
	ok, err := fs.Exists(fileName)
	if err != nil || !ok {
		return false, err
	}
	return fs.Exists(fileName + ".ok")
}

func (ch *OKFlagChecksumer) Checksum(fs FileStorage, fileName string) error {
	w, err := fs.Create(fileName + ".ok")
	if err != nil {
		return err
	}
	return w.Close()
}

//digestChecksumer generate and verify a check file containing the hex digest of the data file
type digestChecksumer struct {
	alg     string
	newHash func() hash.Hash
}

func (ch *digestChecksumer) checkFile(fileName string) string {
	return fmt.Sprintf("%s.%s", fileName, strings.ToLower(ch.alg))
}

func (ch *digestChecksumer) digest(fs FileStorage, fileName string) (string, error) {
	reader, err := fs.Open(fileName)
	if err != nil {
		return "", err
	}
	defer reader.Close()
	h := ch.newHash()
	if _, err = io.Copy(h, reader); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func (ch *digestChecksumer) Verify(fs FileStorage, fileName string) (bool, error) {
	ok, err := fs.Exists(fileName)
	if err != nil || !ok {
		return false, err
	}
	checkFile := ch.checkFile(fileName)
	ok, err = fs.Exists(checkFile)
	if err != nil || !ok {
		return false, err
	}
	checkReader, err := fs.Open(checkFile)
	if err != nil {
		return false, err
	}
	defer checkReader.Close()
	buf, err := io.ReadAll(checkReader)
	if err != nil {
		return false, err
	}
	fileHash, err := ch.digest(fs, fileName)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(buf)) == fileHash, nil
}

func (ch *digestChecksumer) Checksum(fs FileStorage, fileName string) error {
	fileHash, err := ch.digest(fs, fileName)
	if err != nil {
		return err
	}
	w, err := fs.Create(ch.checkFile(fileName))
	if err != nil {
		return err
	}
	if _, err = w.Write([]byte(fileHash)); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
