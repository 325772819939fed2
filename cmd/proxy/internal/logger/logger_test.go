package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_New(t *testing.T) {
	tests := []struct {
		name       string
		opts       Options
		logDebug   bool
		expectJSON bool
	}{
		{name: "text handler at info level", opts: Options{}, logDebug: false},
		{name: "json handler at debug level", opts: Options{Debug: true, Format: "JSON"}, logDebug: true, expectJSON: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := require.New(t)

			var buf bytes.Buffer
			test.opts.Output = &buf
			l := New(test.opts)

			l.Debug("debug line", "conn_id", 1)
			c.Equal(test.logDebug, bytes.Contains(buf.Bytes(), []byte("debug line")))

			buf.Reset()
			l.Info("info line", "remote_addr", "127.0.0.1:1234")

			if test.expectJSON {
				var record map[string]any
				c.NoError(json.Unmarshal(buf.Bytes(), &record))
				c.Equal("info line", record["msg"])
				c.Equal("127.0.0.1:1234", record["remote_addr"])
				return
			}
			c.Contains(buf.String(), `msg="info line"`)
			c.Contains(buf.String(), "remote_addr=127.0.0.1:1234")
		})
	}
}
