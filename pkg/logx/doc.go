// Package logx configures xposter's structured logging.
//
// Logger is a small wrapper on top of zerolog that keeps:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - An optional operator alert sink (Telegram, min-level + rate limited)
//
// Components receive a Logger at construction; there is no package-level logger.
package logx
