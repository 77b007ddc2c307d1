package file

import (
	"fmt"
	"io"
	"net/textproto"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/jlaffaye/ftp"
)

type LocalFileSystem struct {
}

func (fs *LocalFileSystem) Exists(fileName string) (bool, error) {
	_, err := os.Stat(fileName)
	if err != nil && os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (fs *LocalFileSystem) Open(fileName string) (io.ReadCloser, error) {
	return os.Open(fileName)
}

func (fs *LocalFileSystem) Create(fileName string) (io.WriteCloser, error) {
	if dir := filepath.Dir(fileName); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	return os.Create(fileName)
}

func (fs *LocalFileSystem) Remove(fileName string) error {
	if err := os.Remove(fileName); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (fs *LocalFileSystem) Glob(pattern string) ([]string, error) {
	names, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	result := names[:0]
	for _, name := range names {
		if st, err := os.Stat(name); err == nil && !st.IsDir() {
			result = append(result, name)
		}
	}
	sort.Strings(result)
	return result, nil
}

func (fs *LocalFileSystem) String() string {
	return LocalFileStorage
}

type FTPFileSystem struct {
	Host        string
	Port        int
	User        string
	Password    string
	ConnTimeout time.Duration
}

func (fs *FTPFileSystem) connect() (*ftp.ServerConn, error) {
	c, err := ftp.DialTimeout(fmt.Sprintf("%s:%d", fs.Host, fs.Port), fs.ConnTimeout)
	if err != nil {
		return nil, err
	}
	if err = c.Login(fs.User, fs.Password); err != nil {
		_ = c.Quit()
		return nil, err
	}
	return c, nil
}

func (fs *FTPFileSystem) Exists(fileName string) (bool, error) {
	c, err := fs.connect()
	if err != nil {
		return false, err
	}
	defer c.Quit()

	_, err = c.FileSize(fileName)
	if err == nil {
		return true, nil
	}
	if e, ok := err.(*textproto.Error); ok && e.Code == ftp.StatusFileUnavailable {
		return false, nil
	}
	return false, err
}

type ftpReader struct {
	conn *ftp.ServerConn
	resp *ftp.Response
}

func (r *ftpReader) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *ftpReader) Close() error {
	err := r.resp.Close()
	if e := r.conn.Quit(); err == nil {
		err = e
	}
	return err
}

//Open the connection is held until the returned reader is closed
func (fs *FTPFileSystem) Open(fileName string) (io.ReadCloser, error) {
	c, err := fs.connect()
	if err != nil {
		return nil, err
	}
	resp, err := c.Retr(fileName)
	if err != nil {
		_ = c.Quit()
		return nil, err
	}
	return &ftpReader{conn: c, resp: resp}, nil
}

type ftpWriter struct {
	conn *ftp.ServerConn
	pw   *io.PipeWriter
	done chan error
}

func (w *ftpWriter) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

//Close completes the upload and reports its result
func (w *ftpWriter) Close() error {
	err := w.pw.Close()
	if e := <-w.done; err == nil {
		err = e
	}
	if e := w.conn.Quit(); err == nil {
		err = e
	}
	return err
}

func (fs *FTPFileSystem) Create(fileName string) (io.WriteCloser, error) {
	c, err := fs.connect()
	if err != nil {
		return nil, err
	}
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		err := c.Stor(fileName, pr)
		_ = pr.CloseWithError(err)
		done <- err
	}()
	return &ftpWriter{conn: c, pw: pw, done: done}, nil
}

func (fs *FTPFileSystem) Remove(fileName string) error {
	c, err := fs.connect()
	if err != nil {
		return err
	}
	defer c.Quit()

	err = c.Delete(fileName)
	if e, ok := err.(*textproto.Error); ok && e.Code == ftp.StatusFileUnavailable {
		return nil
	}
	return err
}

func (fs *FTPFileSystem) Glob(pattern string) ([]string, error) {
	c, err := fs.connect()
	if err != nil {
		return nil, err
	}
	defer c.Quit()

	dir := path.Dir(pattern)
	names, err := c.NameList(dir)
	if err != nil {
		return nil, err
	}
	result := make([]string, 0, len(names))
	for _, name := range names {
		full := name
		if path.Dir(name) == "." {
			full = path.Join(dir, name)
		}
		ok, err := path.Match(pattern, full)
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, full)
		}
	}
	sort.Strings(result)
	return result, nil
}

func (fs *FTPFileSystem) String() string {
	return fmt.Sprintf("%s://%s:%d", FTPFileStorage, fs.Host, fs.Port)
}
