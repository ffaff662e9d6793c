// Package uart implements the line transport over an asynchronous UART.
//
// The peripheral never blocks the caller: transmit and receive requests
// return immediately and completion is reported later through events, the
// way a DMA driven UART reports from its interrupt handler. Transport
// reacts to these events:
//
//   - received bytes accumulate in a pooled buffer until a line terminator
//     ('\n' or '\r') arrives, then reception is restarted with a fresh
//     buffer and the completed line is queued for the command bridge;
//   - outbound buffers are queued and transmitted one at a time, resuming
//     partially sent buffers from where they stopped;
//   - when no buffer is available to restart reception, a delayed retry is
//     armed instead of blocking the event context.
//
// Event handlers hold a session lock only for the duration of one event.
// A Peripheral must deliver events from its own goroutine and must not call
// the handler from inside Tx, RxEnable, RxBufRsp or RxDisable.
package uart
