// Package viewport maps between screen coordinates and original-image pixel
// coordinates for an image displayed inside a pannable, zoomable container.
//
// # Coordinate Frames
//
// Three frames are involved:
//   - Client: pointer coordinates as reported by the browser (clientX/clientY).
//   - Container: client coordinates minus the container's top-left corner.
//     Boxes are positioned in this frame.
//   - Image: pixels of the original (natural-size) image. Detections are
//     stored in this frame.
//
// The image is first fit into the container (displayed size) and centred.
// Pan and zoom are then applied on top:
//
//	container = offset + image*scale*zoom + pan
//	offset    = (containerSize - displayedSize) / 2
//	scale     = displayedSize / naturalSize
//
// ScreenToImage and ImageToScreen are exact inverses in the client frame;
// ContainerToImage and ImageToContainer are the same pair in the container
// frame.
//
// # Zoom
//
// ZoomAt keeps the image point under the cursor fixed on screen: the point is
// resolved at the old zoom, the zoom changes, and the pan offset absorbs the
// difference. Zoom is clamped to [MinZoom, MaxZoom].
//
// # Sessions
//
// Session owns the ViewState of one displayed image and the detections being
// edited on it. Pointer input drives an explicit state machine:
//
//	Idle -> Panning | Resizing | Creating -> Idle
//
// Cancel (the Escape key) returns to Idle and discards in-progress geometry.
//
// # Preconditions
//
// All transforms assume the image has loaded, i.e. its natural size is
// positive. ViewState.Ready reports this; callers must not transform before it
// holds. The transforms never allocate and never return errors.
package viewport
