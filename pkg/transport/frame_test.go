package transport

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	f := Frame{PC: []uint32{1, 2, 3}, Payload: []byte("hello")}
	wire, err := Encode(f)
	require.NoError(t, err)

	r := bufio.NewReader(bytes.NewReader(wire))
	got, err := ReadFrame(r, false)
	require.NoError(t, err)
	require.Equal(t, f.PC, got.PC)
	require.Equal(t, f.Payload, got.Payload)
}

func TestEncodeRejectsOversizedPayload(t *testing.T) {
	_, err := Encode(Frame{Payload: make([]byte, MaxPayloadSize+1)})
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestEncodeHandshakeRoundTrip(t *testing.T) {
	wire := EncodeHandshake("3")
	r := bufio.NewReader(bytes.NewReader(wire))
	got, err := ReadFrame(r, true)
	require.NoError(t, err)
	require.Equal(t, []byte("3"), got.Payload)
	require.Empty(t, got.PC)
}

func TestReadFrameRejectsTruncatedBody(t *testing.T) {
	wire, err := Encode(Frame{PC: []uint32{7}, Payload: []byte("x")})
	require.NoError(t, err)

	truncated := wire[:len(wire)-2]
	r := bufio.NewReader(bytes.NewReader(truncated))
	_, err = ReadFrame(r, false)
	require.Error(t, err)
}

func TestDecodeBodyRejectsInconsistentLengths(t *testing.T) {
	// pc_size=1, data_size=1, but no bytes follow: 4-byte header only.
	body := []byte{0, 1, 0, 1}
	_, err := decodeBody(body)
	require.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestEncodeEmptyPCRoundTrips(t *testing.T) {
	f := Frame{Payload: []byte("0x2a")}
	wire, err := Encode(f)
	require.NoError(t, err)

	r := bufio.NewReader(bytes.NewReader(wire))
	got, err := ReadFrame(r, false)
	require.NoError(t, err)
	require.Empty(t, got.PC)
	require.Equal(t, f.Payload, got.Payload)
}
