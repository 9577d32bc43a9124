package container

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteSimpleRoundTrip(t *testing.T) {
	for _, part0 := range []int{0, 1, 7, 300} {
		frame := vp8Frame(33, 17, part0)
		for i := VP8FrameHeaderSize; i < len(frame); i++ {
			frame[i] = byte(i)
		}
		var buf bytes.Buffer
		require.NoError(t, WriteSimple(&buf, frame))
		require.Equal(t, SimpleSize(len(frame)), buf.Len())
		require.Zero(t, buf.Len()&1, "file length is even")

		s, err := ParseSimple(buf.Bytes())
		require.NoError(t, err)
		require.Equal(t, frame, s.Payload)
		require.Equal(t, uint32(buf.Len()-8), s.FileSize)
		require.Empty(t, s.Extra)
		require.Equal(t, part0, s.Header.Part0Size)
	}
}

type failWriter struct{ after int }

func (w *failWriter) Write(p []byte) (int, error) {
	if w.after == 0 {
		return 0, errors.New("disk full")
	}
	w.after--
	return len(p), nil
}

func TestWriteSimplePropagatesWriteErrors(t *testing.T) {
	frame := vp8Frame(16, 16, 1)
	for after := 0; after < 3; after++ {
		err := WriteSimple(&failWriter{after: after}, frame)
		require.Error(t, err, "failing after %d writes", after)
		require.Contains(t, err.Error(), "disk full")
	}
}
