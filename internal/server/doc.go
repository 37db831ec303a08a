// Package server implements an MCP (Model Context Protocol) server over the
// annotation data.
//
// The server speaks JSON-RPC 2.0 over stdio, one request per line, so an
// assistant can inspect the detection sets, check correction statistics and
// look at individual detections without the browser UI.
//
// # Protocol
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// stdout carries the protocol. Logs must go elsewhere; the command wires the
// logger to stderr.
//
// # Available Tools
//
// Annotation analysis:
//   - annotation_iou: IoU of two boxes
//   - annotation_reconcile: Match and diff two detection lists
//   - annotation_correction_log: Change records for the stored sets
//   - annotation_stats: Aggregated correction summary
//
// Viewport geometry:
//   - viewport_screen_to_image, viewport_image_to_screen: Coordinate mapping
//   - viewport_zoom: Anchored zoom
//   - viewport_resize: Handle drag with the minimum-size clamp
//   - viewport_draw_box: Drag-to-create proposal
//
// Artwork images:
//   - image_dimensions: Size, format and file size
//   - detection_crop, detection_highlight, detection_overlay: Rendered PNGs
//   - detection_ocr: Text inside a box
//   - detection_colors: Dominant colors inside a box
//
// Detection tools accept either a detection_id from the working set or an
// explicit bbox.
//
// # Errors
//
//   - -32601: unknown method
//   - -32602: malformed params, bad tool arguments or unknown tool
//   - -32000: the tool ran and failed (missing image, box outside the image,
//     Tesseract unavailable)
package server
