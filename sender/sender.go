package sender

import (
	"encoding/binary"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/pkg/errors"

	"github.com/novafacing/cannonball/corecode"
	"github.com/novafacing/cannonball/event"
)

// DefaultBatchSize matches the source's fixed batch threshold: the
// sender flushes as soon as this many records are buffered, or on
// Teardown, whichever comes first.
const DefaultBatchSize = 64

// dialRetryInterval is how long Setup waits between connection attempts
// while the listener has not come up yet.
const dialRetryInterval = 100 * time.Millisecond

// Sender batches completed event.Records and writes them to a Unix
// socket listener. Its internal goroutine owns the connection
// exclusively, grounded on go/models/async_stream.go's run() loop: a
// buffered write channel, a close channel carrying an ack, and a
// dedicated goroutine that is the only thing that ever touches the
// underlying net.Conn.
type Sender struct {
	conn      net.Conn
	batchSize int

	submit chan *event.Record
	closeC chan chan struct{}

	teardownOnce sync.Once
}

// Setup dials sockPath, blocking and retrying until a listener exists,
// then starts the sender's internal goroutine. batchSize <= 0 means
// DefaultBatchSize.
func Setup(sockPath string, batchSize int) (*Sender, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	conn, err := dialRetry(sockPath)
	if err != nil {
		return nil, errors.Wrap(corecode.SenderInitError, err.Error())
	}
	s := &Sender{
		conn:      conn,
		batchSize: batchSize,
		submit:    make(chan *event.Record, 4*batchSize),
		closeC:    make(chan chan struct{}),
	}
	go s.run()
	return s, nil
}

func dialRetry(sockPath string) (net.Conn, error) {
	for {
		conn, err := net.Dial("unix", sockPath)
		if err == nil {
			return conn, nil
		}
		if !isConnRefusedOrMissing(err) {
			return nil, err
		}
		time.Sleep(dialRetryInterval)
	}
}

func isConnRefusedOrMissing(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ENOENT)
}

// Submit hands rec to the sender's internal goroutine for batching. The
// core relinquishes ownership of rec once Submit returns; the sender may
// drop it silently if the connection has already failed. Submit never
// blocks on the network — it only blocks if the internal channel's
// buffer is full, which back-pressures a producer far faster than the
// host could ever emit events.
func (s *Sender) Submit(rec *event.Record) {
	s.submit <- rec
}

// Teardown flushes any buffered records, closes the connection, and
// stops the internal goroutine. It is idempotent: a second call is a
// no-op, matching the source's "teardown is safe to call once the
// plugin is already shutting down" requirement.
func (s *Sender) Teardown() {
	s.teardownOnce.Do(func() {
		done := make(chan struct{})
		s.closeC <- done
		<-done
	})
}

func (s *Sender) run() {
	batch := make([]*event.Record, 0, s.batchSize)
	failed := false

	flush := func() {
		if failed || len(batch) == 0 {
			batch = batch[:0]
			return
		}
		if err := s.writeBatch(batch); err != nil {
			log.WithError(err).Error("sender: write failed, dropping subsequent events")
			failed = true
		}
		batch = batch[:0]
	}

	for {
		select {
		case rec := <-s.submit:
			if failed {
				continue
			}
			batch = append(batch, rec)
			if len(batch) >= s.batchSize {
				flush()
			}
		case done := <-s.closeC:
			flush()
			s.conn.Close()
			close(done)
			return
		}
	}
}

// writeBatch encodes batch and writes it to the connection as a single
// 4-byte-length-prefixed frame, retrying on partial writes until the
// whole frame is flushed or the connection proves dead.
func (s *Sender) writeBatch(batch []*event.Record) error {
	payload, err := encodeBatch(batch)
	if err != nil {
		return errors.Wrap(err, "failed to encode batch")
	}
	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(payload)))
	if err := writeFull(s.conn, lenPrefix[:]); err != nil {
		return errors.Wrap(err, "failed to write batch length")
	}
	if err := writeFull(s.conn, payload); err != nil {
		return errors.Wrap(err, "failed to write batch payload")
	}
	return nil
}

// writeFull retries partial writes until all of p is written or Write
// returns an error.
func writeFull(w interface{ Write([]byte) (int, error) }, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}
