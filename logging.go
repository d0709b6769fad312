/*
@Description: zap logger plumbing shared by Encoder/Decoder
@Language: Go 1.23.4
*/

package fecgo

import "go.uber.org/zap"

// sugaredOrNop returns logger.Sugar(), or a no-op sugared logger when
// logger is nil, so Encoder/Decoder never need a nil check before
// logging (adapted from the debug-logger fallback pattern used for
// congestion-control logging in the example pack).
func sugaredOrNop(logger *zap.Logger) *zap.SugaredLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger.Sugar()
}
