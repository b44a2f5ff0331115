package session

import (
	"go.uber.org/zap"

	"github.com/avalonlabs/vesper/domain/repositories"
	"github.com/avalonlabs/vesper/internal/audio"
)

// capturePipeline taps the acquired microphone stream and forwards each
// encoded frame to the open session. Frames are fire-and-forget: the
// device timeline never blocks on transport delivery, and a failed send
// drops the frame rather than stalling capture.
type capturePipeline struct {
	in     repositories.InputStream
	sess   repositories.LiveSession
	logger *zap.Logger
}

func newCapturePipeline(in repositories.InputStream, sess repositories.LiveSession, logger *zap.Logger) *capturePipeline {
	return &capturePipeline{in: in, sess: sess, logger: logger}
}

// start installs the frame tap. Only called once the session is open.
func (c *capturePipeline) start() error {
	return c.in.Start(func(frame []float32) {
		envelope := audio.EncodeFrame(frame)
		if envelope == "" {
			return
		}
		if err := c.sess.SendAudioFrame(envelope); err != nil {
			c.logger.Debug("Dropped capture frame", zap.Error(err))
		}
	})
}

// stop disconnects the tap and releases the input device. The InputStream
// contract guarantees no frame is delivered after Close returns, so this
// must run before any other session resource is released.
func (c *capturePipeline) stop() error {
	return c.in.Close()
}
