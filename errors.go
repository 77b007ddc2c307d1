package twig

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

//BatchError error raised by the pipeline, carrying a code and a stack trace
type BatchError interface {
	Code() string
	Message() string
	Error() string
	StackTrace() errors.StackTrace
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

type batchErr struct {
	code  string
	msg   string
	err   error
	cause error
}

func (err *batchErr) Code() string {
	return err.code
}

func (err *batchErr) Message() string {
	return err.msg
}

func (err *batchErr) Error() string {
	if err.cause != nil {
		return fmt.Sprintf("twig err, code:%v, message:%v, cause:%v", err.code, err.msg, err.cause)
	}
	return fmt.Sprintf("twig err, code:%v, message:%v", err.code, err.msg)
}

func (err *batchErr) StackTrace() errors.StackTrace {
	if st, ok := err.err.(stackTracer); ok {
		return st.StackTrace()
	}
	return nil
}

func (err *batchErr) Unwrap() error {
	return err.cause
}

func (err *batchErr) Cause() error {
	return err.cause
}

func (err *batchErr) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			_, _ = io.WriteString(s, err.Error())
			for _, f := range err.StackTrace() {
				_, _ = fmt.Fprintf(s, "\n%+v", f)
			}
			return
		}
		fallthrough
	case 's':
		_, _ = io.WriteString(s, err.Error())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", err.Error())
	}
}

//NewBatchError new instance. msg may be a format string for args; a trailing error arg that is not
//consumed by the format becomes the cause
func NewBatchError(code string, msg string, args ...interface{}) BatchError {
	var cause error
	if len(args) > 0 {
		if e, ok := args[len(args)-1].(error); ok && countVerbs(msg) < len(args) {
			cause = e
			args = args[:len(args)-1]
		}
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	var err error
	if cause != nil {
		err = errors.Wrap(cause, msg)
	} else {
		err = errors.New(msg)
	}
	return &batchErr{code: code, msg: msg, err: err, cause: cause}
}

func countVerbs(format string) int {
	n := 0
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		if i+1 < len(format) && format[i+1] == '%' {
			i++
			continue
		}
		n++
	}
	return n
}

//TaskError a single input failed to process. It never aborts the run
type TaskError struct {
	Source string
	Err    error
	stack  errors.StackTrace
}

func newTaskError(source string, err error) *TaskError {
	var st errors.StackTrace
	if s, ok := errors.WithStack(err).(stackTracer); ok {
		st = s.StackTrace()
	}
	return &TaskError{Source: source, Err: err, stack: st}
}

func (e *TaskError) Code() string {
	return ErrCodeTask
}

func (e *TaskError) Message() string {
	return fmt.Sprintf("task failed, source:%v", e.Source)
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("twig err, code:%v, source:%v, cause:%v", ErrCodeTask, e.Source, e.Err)
}

func (e *TaskError) StackTrace() errors.StackTrace {
	return e.stack
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

//IsCode reports whether any BatchError in err's chain carries code
func IsCode(err error, code string) bool {
	for err != nil {
		if be, ok := err.(BatchError); ok && be.Code() == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

const (
	ErrCodeTask    = "task"
	ErrCodeSink    = "sink"
	ErrCodeConfig  = "config"
	ErrCodeStop    = "stop"
	ErrCodeDbFail  = "db_fail"
	ErrCodeGeneral = "general"
)

var (
	StopError BatchError = &batchErr{code: ErrCodeStop, msg: "run stopping"}
)
