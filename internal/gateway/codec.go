package gateway

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net/rpc"

	"github.com/vmihailenco/msgpack/v5"
)

// msgpack-rpc frame types.
const (
	frameRequest  = 0
	frameResponse = 1
)

// msgpackClientCodec speaks msgpack-rpc. Requests are [0, msgid, method,
// params] and responses [1, msgid, error, result].
type msgpackClientCodec struct {
	rwc    io.ReadWriteCloser
	dec    *msgpack.Decoder
	enc    *msgpack.Encoder
	encBuf *bufio.Writer
}

// NewClientCodec wraps conn in a net/rpc client codec speaking msgpack-rpc.
// The request body must be the parameter list.
func NewClientCodec(conn io.ReadWriteCloser) rpc.ClientCodec {
	encBuf := bufio.NewWriter(conn)
	return &msgpackClientCodec{
		rwc:    conn,
		dec:    msgpack.NewDecoder(bufio.NewReader(conn)),
		enc:    msgpack.NewEncoder(encBuf),
		encBuf: encBuf,
	}
}

func (c *msgpackClientCodec) WriteRequest(r *rpc.Request, body any) error {
	params, ok := body.([]any)
	if !ok && body != nil {
		params = []any{body}
	}
	if params == nil {
		params = []any{}
	}
	if err := c.enc.EncodeArrayLen(4); err != nil {
		return err
	}
	if err := c.enc.EncodeInt(frameRequest); err != nil {
		return err
	}
	if err := c.enc.EncodeUint(r.Seq); err != nil {
		return err
	}
	if err := c.enc.EncodeString(r.ServiceMethod); err != nil {
		return err
	}
	if err := c.enc.Encode(params); err != nil {
		return err
	}
	return c.encBuf.Flush()
}

func (c *msgpackClientCodec) ReadResponseHeader(r *rpc.Response) error {
	n, err := c.dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n != 4 {
		return fmt.Errorf("msgpack-rpc: response frame has %d elements", n)
	}
	typ, err := c.dec.DecodeInt()
	if err != nil {
		return err
	}
	if typ != frameResponse {
		return fmt.Errorf("msgpack-rpc: unexpected frame type %d", typ)
	}
	if r.Seq, err = c.dec.DecodeUint64(); err != nil {
		return err
	}
	rerr, err := c.dec.DecodeInterface()
	if err != nil {
		return err
	}
	r.Error = ""
	if rerr != nil {
		r.Error = fmt.Sprint(rerr)
	}
	return nil
}

func (c *msgpackClientCodec) ReadResponseBody(body any) error {
	if body == nil {
		return c.dec.Skip()
	}
	return c.dec.Decode(body)
}

func (c *msgpackClientCodec) Close() error {
	return c.rwc.Close()
}

// loggingClientCodec logs every call at debug level.
type loggingClientCodec struct {
	rpc.ClientCodec
	lg *slog.Logger
}

func (c *loggingClientCodec) WriteRequest(r *rpc.Request, body any) error {
	err := c.ClientCodec.WriteRequest(r, body)
	c.lg.Debug("gateway: rpc request", slog.String("method", r.ServiceMethod),
		slog.Uint64("seq", r.Seq), slog.Any("error", err))
	return err
}

func (c *loggingClientCodec) ReadResponseHeader(r *rpc.Response) error {
	err := c.ClientCodec.ReadResponseHeader(r)
	c.lg.Debug("gateway: rpc response", slog.Uint64("seq", r.Seq),
		slog.String("remote_error", r.Error), slog.Any("error", err))
	return err
}
