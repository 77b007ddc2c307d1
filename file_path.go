package twig

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

//FilePath an abstract output path, e.g. "out/{name}-{date,yyyyMMdd}-{index,#4}.ttl.gz"
type FilePath struct {
	NamePattern string
}

//PathParamIndex context key holding the rotation index while a FilePath is formatted
const PathParamIndex = "index"

var paramRegexp = regexp.MustCompile(`\{[^}]+\}`)

//Format generate a real file path by substituting {param[,format]} with values taken from ctx
func (f *FilePath) Format(ctx *BatchContext) (string, error) {
	var err error
	factPath := paramRegexp.ReplaceAllStringFunc(f.NamePattern, func(s string) string {
		if err != nil {
			return ""
		}
		param, format := s[1:len(s)-1], ""
		if idx := strings.Index(param, ","); idx > 0 {
			param, format = param[0:idx], param[idx+1:]
		}
		if ctx == nil || !ctx.Exists(param) {
			err = errors.Errorf("can not find param:%v", param)
			return ""
		}
		var str string
		str, err = formatParam(ctx.Get(param), format)
		return str
	})
	if err != nil {
		return "", err
	}
	return factPath, nil
}

//Rotation returns the path of the checkpoint with the given rotation index
func (f *FilePath) Rotation(ctx *BatchContext, index int) (string, error) {
	c := NewBatchContext()
	c.Merge(ctx)
	c.Put(PathParamIndex, index)
	return f.Format(c)
}

var dateFmtRegexp = regexp.MustCompile("yyyy|MM|dd|HH|mm|SS")

var dateFmtReplacer = strings.NewReplacer("yyyy", "2006", "MM", "01", "dd", "02", "HH", "15", "mm", "04", "SS", "05")

func formatParam(val interface{}, format string) (string, error) {
	switch {
	case format == "":
		return fmt.Sprintf("%v", val), nil
	case dateFmtRegexp.MatchString(format):
		dt, err := parseDate(val)
		if err != nil {
			return "", err
		}
		return dt.Format(dateFmtReplacer.Replace(format)), nil
	case strings.Contains(format, "#"):
		//zero padded number, "#4" or "4#"
		digit, err := strconv.Atoi(strings.Trim(format, "#"))
		if err != nil {
			return "", errors.Errorf("unsupported format:%v", format)
		}
		n, ok := toInt64(val)
		if !ok {
			s, isStr := val.(string)
			if !isStr {
				return "", errors.Errorf("can not parse to integer:%v", val)
			}
			n, err = strconv.ParseInt(s, 10, 64)
			if err != nil {
				return "", errors.Errorf("can not parse to integer:%v", val)
			}
		}
		return fmt.Sprintf("%0*d", digit, n), nil
	}
	return "", errors.Errorf("unsupported format:%v", format)
}

func parseDate(val interface{}) (time.Time, error) {
	switch v := val.(type) {
	case time.Time:
		return v, nil
	case string:
		switch len(v) {
		case 8:
			return time.ParseInLocation("20060102", v, time.Local)
		case 10:
			return time.ParseInLocation("2006-01-02", v, time.Local)
		case 19:
			return time.ParseInLocation("2006-01-02 15:04:05", v, time.Local)
		}
	}
	return time.Time{}, errors.Errorf("can not parse to date:%v", val)
}
