package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/ironsheep/bbox-annotator/internal/annotation"
	"github.com/ironsheep/bbox-annotator/internal/imaging"
	"github.com/ironsheep/bbox-annotator/internal/ocr"
	"github.com/ironsheep/bbox-annotator/internal/reconcile"
	"github.com/ironsheep/bbox-annotator/internal/store"
	"github.com/ironsheep/bbox-annotator/internal/viewport"
)

var (
	// errInvalidArgs marks argument problems, reported as -32602.
	errInvalidArgs = errors.New("invalid arguments")

	errUnknownTool = errors.New("unknown tool")
	errNoStore     = errors.New("no detection store configured")
	errNoLoader    = errors.New("no image directory configured")
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "annotation_iou", "detection_crop").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Bad arguments and unknown tools return -32602; any other failure returns
// -32000 with the error text as data.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, CodeInvalidParams, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Info("tool failed", "tool", params.Name, "error", err)
		if errors.Is(err, errInvalidArgs) || errors.Is(err, errUnknownTool) {
			return s.errorResponse(req.ID, CodeInvalidParams, "Invalid params", err.Error())
		}
		return s.errorResponse(req.ID, CodeToolFailed, "Tool execution failed", err.Error())
	}

	return reply(req.ID, toolResult{
		Content: []textContent{{Type: "text", Text: mustMarshalJSON(result)}},
	})
}

// toolResult wraps a tool's JSON output as a single text content block.
type toolResult struct {
	Content []textContent `json:"content"`
}

type textContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Annotation analysis
	case "annotation_iou":
		return s.handleIoU(args)
	case "annotation_reconcile":
		return s.handleReconcile(args)
	case "annotation_correction_log":
		return s.handleCorrectionLog(args)
	case "annotation_stats":
		return s.handleStats(args)

	// Viewport geometry
	case "viewport_screen_to_image":
		return s.handleScreenToImage(args)
	case "viewport_image_to_screen":
		return s.handleImageToScreen(args)
	case "viewport_zoom":
		return s.handleZoom(args)
	case "viewport_resize":
		return s.handleResize(args)
	case "viewport_draw_box":
		return s.handleDrawBox(args)

	// Artwork images
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "detection_crop":
		return s.handleDetectionCrop(args)
	case "detection_overlay":
		return s.handleDetectionOverlay(args)
	case "detection_highlight":
		return s.handleDetectionHighlight(args)
	case "detection_ocr":
		return s.handleDetectionOCR(args)
	case "detection_colors":
		return s.handleDetectionColors(args)

	default:
		return nil, fmt.Errorf("%w: %s", errUnknownTool, name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	e := &MCPError{Code: code, Message: message}
	if data != "" {
		e.Data = data
	}
	return &MCPResponse{JSONRPC: "2.0", ID: id, Error: e}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments. Missing arguments decode as {}.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidArgs, err)
	}
	return nil
}

// === Annotation Handlers ===

type iouArgs struct {
	A annotation.BBox `json:"a"`
	B annotation.BBox `json:"b"`
}

func (s *Server) handleIoU(args json.RawMessage) (interface{}, error) {
	var a iouArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return map[string]float64{"iou": reconcile.IoU(a.A, a.B)}, nil
}

// matchArgs override the configured matching options for one call.
type matchArgs struct {
	Threshold float64 `json:"threshold"`
	Strategy  string  `json:"strategy"`
}

func (s *Server) matchOptions(m matchArgs) (reconcile.Options, error) {
	opts := s.deps.Match
	if m.Threshold != 0 {
		if m.Threshold < 0 || m.Threshold >= 1 {
			return opts, fmt.Errorf("%w: threshold %g outside (0, 1)", errInvalidArgs, m.Threshold)
		}
		opts.Threshold = m.Threshold
	}
	if m.Strategy != "" {
		st, err := reconcile.ParseStrategy(m.Strategy)
		if err != nil {
			return opts, fmt.Errorf("%w: %v", errInvalidArgs, err)
		}
		opts.Strategy = st
	}
	return opts, nil
}

type reconcileArgs struct {
	ImageID  string                 `json:"image_id"`
	Original []annotation.Detection `json:"original"`
	Working  []annotation.Detection `json:"working"`
	matchArgs
}

type reconcileResult struct {
	ImageID    string                   `json:"image_id"`
	Assignment reconcile.Assignment     `json:"assignment"`
	Records    []reconcile.ChangeRecord `json:"records"`
}

func (s *Server) handleReconcile(args json.RawMessage) (interface{}, error) {
	var a reconcileArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	opts, err := s.matchOptions(a.matchArgs)
	if err != nil {
		return nil, err
	}
	return &reconcileResult{
		ImageID:    a.ImageID,
		Assignment: reconcile.Match(a.Original, a.Working, opts),
		Records:    reconcile.Reconcile(a.ImageID, a.Original, a.Working, opts),
	}, nil
}

type logArgs struct {
	Category string `json:"category"`
	Label    string `json:"label"`
	matchArgs
}

// correctionLog reconciles the stored sets and applies the record filter.
func (s *Server) correctionLog(a logArgs) (records []reconcile.ChangeRecord, total int, working []annotation.ImageDetections, err error) {
	if s.deps.Store == nil {
		return nil, 0, nil, errNoStore
	}
	opts, err := s.matchOptions(a.matchArgs)
	if err != nil {
		return nil, 0, nil, err
	}
	original, working := s.deps.Store.Snapshot()
	all := reconcile.ComputeCorrectionLog(original, working, opts)
	filtered := reconcile.FilterRecords(all, original, working,
		reconcile.RecordFilter{Category: a.Category, Label: a.Label})
	return filtered, len(all), working, nil
}

func (s *Server) handleCorrectionLog(args json.RawMessage) (interface{}, error) {
	var a logArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	records, total, _, err := s.correctionLog(a)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"total":   total,
		"count":   len(records),
		"records": records,
	}, nil
}

func (s *Server) handleStats(args json.RawMessage) (interface{}, error) {
	var a logArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	records, _, working, err := s.correctionLog(a)
	if err != nil {
		return nil, err
	}
	return reconcile.Summarize(records, working), nil
}

// === Viewport Handlers ===

type pointArgs struct {
	View viewport.ViewState `json:"view"`
	X    float64            `json:"x"`
	Y    float64            `json:"y"`
}

// checkView rejects views that cannot be mapped. A missing zoom means 1.
func checkView(v *viewport.ViewState) error {
	if !v.Ready() {
		return fmt.Errorf("%w: view: %v", errInvalidArgs, viewport.ErrNotReady)
	}
	if v.Displayed.W <= 0 || v.Displayed.H <= 0 {
		return fmt.Errorf("%w: view: displayed_size must be positive", errInvalidArgs)
	}
	if v.Zoom == 0 {
		v.Zoom = 1
	}
	if v.Zoom < 0 {
		return fmt.Errorf("%w: view: zoom_level must be positive", errInvalidArgs)
	}
	return nil
}

func (s *Server) handleScreenToImage(args json.RawMessage) (interface{}, error) {
	var a pointArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := checkView(&a.View); err != nil {
		return nil, err
	}
	return a.View.ScreenToImage(viewport.Point{X: a.X, Y: a.Y}), nil
}

func (s *Server) handleImageToScreen(args json.RawMessage) (interface{}, error) {
	var a pointArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := checkView(&a.View); err != nil {
		return nil, err
	}
	return a.View.ImageToScreen(viewport.Point{X: a.X, Y: a.Y}), nil
}

type zoomArgs struct {
	pointArgs

	// Delta changes the zoom directly; DeltaY applies one wheel notch.
	Delta  *float64 `json:"delta"`
	DeltaY *float64 `json:"delta_y"`
}

func (s *Server) handleZoom(args json.RawMessage) (interface{}, error) {
	var a zoomArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := checkView(&a.View); err != nil {
		return nil, err
	}

	v := a.View
	p := viewport.Point{X: a.X, Y: a.Y}
	switch {
	case a.Delta != nil:
		v.ZoomAt(p, *a.Delta)
	case a.DeltaY != nil:
		v.WheelZoom(p, *a.DeltaY)
	default:
		return nil, fmt.Errorf("%w: delta or delta_y is required", errInvalidArgs)
	}
	return map[string]interface{}{
		"zoom_level": v.Zoom,
		"view":       v,
	}, nil
}

type resizeArgs struct {
	View   viewport.ViewState `json:"view"`
	BBox   annotation.BBox    `json:"bbox"`
	Handle string             `json:"handle"`
	DX     float64            `json:"dx"`
	DY     float64            `json:"dy"`
}

func (s *Server) handleResize(args json.RawMessage) (interface{}, error) {
	var a resizeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := checkView(&a.View); err != nil {
		return nil, err
	}
	h, err := viewport.ParseHandle(a.Handle)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidArgs, err)
	}

	start := a.View.BoxToContainer(a.BBox)
	r := viewport.Resize(start, h, a.DX, a.DY)
	return map[string]interface{}{
		"rect": r,
		"bbox": a.View.ContainerRectToImage(r),
	}, nil
}

type drawBoxArgs struct {
	View  viewport.ViewState `json:"view"`
	Start viewport.Point     `json:"start"`
	End   viewport.Point     `json:"end"`
}

// handleDrawBox turns a drag between two client points into a proposed box.
// Drags no larger than MinBoxSize in either direction are not accepted.
func (s *Server) handleDrawBox(args json.RawMessage) (interface{}, error) {
	var a drawBoxArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := checkView(&a.View); err != nil {
		return nil, err
	}

	r := viewport.NormalizeRect(
		a.Start.Sub(a.View.ContainerOrigin),
		a.End.Sub(a.View.ContainerOrigin),
	)
	result := map[string]interface{}{
		"rect":     r,
		"accepted": viewport.LargeEnough(r),
	}
	if viewport.LargeEnough(r) {
		result["bbox"] = a.View.ContainerRectToImage(r)
	}
	return result, nil
}

// === Image Handlers ===

type imageArgs struct {
	ImageFile string `json:"image_file"`
}

func (s *Server) loadImage(name string) (image.Image, error) {
	if s.deps.Loader == nil {
		return nil, errNoLoader
	}
	if name == "" {
		return nil, fmt.Errorf("%w: image_file is required", errInvalidArgs)
	}
	return s.deps.Loader.Load(name)
}

func (s *Server) palette() *imaging.Palette {
	if s.deps.Store == nil {
		return imaging.NewPalette(nil)
	}
	return imaging.NewPalette(s.deps.Store.Categories())
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if s.deps.Loader == nil {
		return nil, errNoLoader
	}
	if a.ImageFile == "" {
		return nil, fmt.Errorf("%w: image_file is required", errInvalidArgs)
	}
	return s.deps.Loader.Info(a.ImageFile)
}

// targetArgs name one box on an image, either by the ID of a stored working
// detection or by explicit coordinates.
type targetArgs struct {
	ImageFile   string           `json:"image_file"`
	DetectionID string           `json:"detection_id"`
	BBox        *annotation.BBox `json:"bbox"`
}

// resolve loads the image and finds the target detection. Explicit boxes
// become a detection with no label in the default category.
func (s *Server) resolve(a targetArgs) (image.Image, annotation.Detection, error) {
	var det annotation.Detection
	switch {
	case a.DetectionID != "":
		if s.deps.Store == nil {
			return nil, det, errNoStore
		}
		d, err := s.deps.Store.Detection(a.ImageFile, a.DetectionID)
		if err != nil {
			return nil, det, err
		}
		det = d
	case a.BBox != nil:
		det = annotation.Detection{Category: annotation.DefaultCategory, BBox: *a.BBox}
	default:
		return nil, det, fmt.Errorf("%w: detection_id or bbox is required", errInvalidArgs)
	}

	if !det.BBox.Valid() {
		return nil, det, fmt.Errorf("%w: %w", errInvalidArgs, annotation.ErrInvalidBBox)
	}
	img, err := s.loadImage(a.ImageFile)
	if err != nil {
		return nil, det, err
	}
	return img, det, nil
}

// imageResult is an encoded image plus the detection it was rendered for.
type imageResult struct {
	ImageFile string                `json:"image_file"`
	Detection *annotation.Detection `json:"detection,omitempty"`
	*imaging.EncodedImage
}

type cropArgs struct {
	targetArgs
	Padding int     `json:"padding"`
	Scale   float64 `json:"scale"`
}

func (s *Server) handleDetectionCrop(args json.RawMessage) (interface{}, error) {
	var a cropArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, det, err := s.resolve(a.targetArgs)
	if err != nil {
		return nil, err
	}
	crop, err := imaging.CropBox(img, det.BBox, a.Padding, a.Scale)
	if err != nil {
		return nil, err
	}
	enc, err := imaging.Encode(crop)
	if err != nil {
		return nil, err
	}
	return &imageResult{ImageFile: a.ImageFile, Detection: &det, EncodedImage: enc}, nil
}

type overlayArgs struct {
	ImageFile  string `json:"image_file"`
	Thickness  int    `json:"thickness"`
	HideLabels bool   `json:"hide_labels"`
	MaxWidth   int    `json:"max_width"`
	MaxHeight  int    `json:"max_height"`
	Grid       int    `json:"grid_spacing"`
	GridColor  string `json:"grid_color"`
}

func (s *Server) handleDetectionOverlay(args json.RawMessage) (interface{}, error) {
	var a overlayArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Grid < 0 {
		return nil, fmt.Errorf("%w: grid_spacing must not be negative", errInvalidArgs)
	}
	var gridColor color.Color
	if a.GridColor != "" {
		c, err := imaging.ParseColor(a.GridColor)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errInvalidArgs, err)
		}
		gridColor = c
	}
	if s.deps.Store == nil {
		return nil, errNoStore
	}
	im, ok := s.deps.Store.Image(a.ImageFile)
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrImageNotFound, a.ImageFile)
	}
	img, err := s.loadImage(a.ImageFile)
	if err != nil {
		return nil, err
	}

	out := imaging.Overlay(img, im.Detections, s.palette(), imaging.OverlayOptions{
		Thickness:   a.Thickness,
		HideLabels:  a.HideLabels,
		GridSpacing: a.Grid,
		GridColor:   gridColor,
	})
	enc, err := imaging.Encode(imaging.Thumbnail(out, a.MaxWidth, a.MaxHeight))
	if err != nil {
		return nil, err
	}
	return &imageResult{ImageFile: a.ImageFile, EncodedImage: enc}, nil
}

type highlightArgs struct {
	targetArgs
	Dim float64 `json:"dim"`
}

func (s *Server) handleDetectionHighlight(args json.RawMessage) (interface{}, error) {
	var a highlightArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, det, err := s.resolve(a.targetArgs)
	if err != nil {
		return nil, err
	}
	out, err := imaging.Highlight(img, det.BBox, a.Dim, s.palette().Color(det.Category))
	if err != nil {
		return nil, err
	}
	enc, err := imaging.Encode(out)
	if err != nil {
		return nil, err
	}
	return &imageResult{ImageFile: a.ImageFile, Detection: &det, EncodedImage: enc}, nil
}

type ocrArgs struct {
	targetArgs
	Padding       int     `json:"padding"`
	MinConfidence float64 `json:"min_confidence"`
}

func (s *Server) handleDetectionOCR(args json.RawMessage) (interface{}, error) {
	var a ocrArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, det, err := s.resolve(a.targetArgs)
	if err != nil {
		return nil, err
	}
	res, err := s.deps.OCR.ReadBox(img, det.BBox, ocr.Options{
		Padding:       a.Padding,
		MinConfidence: a.MinConfidence,
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"image_file": a.ImageFile,
		"detection":  det,
		"language":   s.deps.OCR.Language(),
		"text":       res.Text,
		"words":      res.Words,
		"scale":      res.Scale,
	}, nil
}

type colorsArgs struct {
	targetArgs
	Count int `json:"count"`
}

func (s *Server) handleDetectionColors(args json.RawMessage) (interface{}, error) {
	var a colorsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, det, err := s.resolve(a.targetArgs)
	if err != nil {
		return nil, err
	}
	colors, err := imaging.DominantColors(img, det.BBox, a.Count)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"image_file": a.ImageFile,
		"detection":  det,
		"colors":     colors,
	}, nil
}
