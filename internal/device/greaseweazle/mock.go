package greaseweazle

import "bytes"

// MockPort is a scripted Port for tests: queued device responses are served
// to Read, and every host Write is recorded.
type MockPort struct {
	Responses bytes.Buffer
	Writes    [][]byte
	Closed    bool
}

func (m *MockPort) Read(p []byte) (int, error) {
	return m.Responses.Read(p)
}

func (m *MockPort) Write(p []byte) (int, error) {
	cp := make([]byte, len(p))
	copy(cp, p)
	m.Writes = append(m.Writes, cp)
	return len(p), nil
}

func (m *MockPort) Close() error {
	m.Closed = true
	return nil
}

// QueueResponse enqueues a framed device response: command echo, ack and
// optional payload bytes.
func (m *MockPort) QueueResponse(cmd, ack byte, payload ...byte) {
	m.Responses.WriteByte(cmd)
	m.Responses.WriteByte(ack)
	m.Responses.Write(payload)
}

// QueueRaw enqueues unframed bytes, e.g. a flux sample stream.
func (m *MockPort) QueueRaw(data ...byte) {
	m.Responses.Write(data)
}
