package server

import (
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/bbox-annotator/internal/annotation"
	"github.com/ironsheep/bbox-annotator/internal/imaging"
	"github.com/ironsheep/bbox-annotator/internal/reconcile"
	"github.com/ironsheep/bbox-annotator/internal/store"
)

const fixtureJSON = `[
  {"image_file": "a.png", "detections": [
    {"label": "horse", "category": "Animals", "bbox": [10, 10, 30, 30]},
    {"label": "sword", "category": "Weapons", "bbox": [50, 40, 90, 70]}
  ]},
  {"image_file": "b.png", "detections": []}
]`

// createTestImageFile writes a white PNG with a blue square at (10,10)-(30,30).
func createTestImageFile(t *testing.T, dir, name string, width, height int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(10, 10, 30, 30), image.NewUniform(color.RGBA{0, 0, 255, 255}), image.Point{}, draw.Src)

	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("failed to create image file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
}

// newTestServer returns a server over a fresh store and image directory.
func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	imgDir := filepath.Join(dir, "images")
	if err := os.MkdirAll(imgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	createTestImageFile(t, imgDir, "a.png", 100, 80)

	orig := filepath.Join(dir, "detections.json")
	if err := os.WriteFile(orig, []byte(fixtureJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(orig, filepath.Join(dir, "detections_working.json"), logger)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	loader, err := imaging.NewLoader(imgDir, 4)
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	return New(Deps{Store: st, Loader: loader, Logger: logger}), st
}

func callTool(t *testing.T, s *Server, name string, args interface{}) *MCPResponse {
	t.Helper()
	params, err := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	if err != nil {
		t.Fatal(err)
	}
	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeResult unmarshals the text content of a successful tool call.
func decodeResult(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected error: %d %s %v", resp.Error.Code, resp.Error.Message, resp.Error.Data)
	}
	result, ok := resp.Result.(toolResult)
	if !ok {
		t.Fatalf("Result: got %T, want toolResult", resp.Result)
	}
	if len(result.Content) != 1 {
		t.Fatalf("content: got %d blocks, want 1", len(result.Content))
	}
	if result.Content[0].Type != "text" {
		t.Errorf("content type: got %q, want text", result.Content[0].Type)
	}
	if err := json.Unmarshal([]byte(result.Content[0].Text), v); err != nil {
		t.Fatalf("decode result: %v", err)
	}
}

func detectionID(t *testing.T, st *store.Store, file, label string) string {
	t.Helper()
	im, ok := st.Image(file)
	if !ok {
		t.Fatalf("image %s not in store", file)
	}
	for _, d := range im.Detections {
		if d.Label == label {
			return d.ID
		}
	}
	t.Fatalf("no %s detection in %s", label, file)
	return ""
}

func unitView() map[string]interface{} {
	return map[string]interface{}{
		"natural_size":   map[string]float64{"w": 100, "h": 100},
		"displayed_size": map[string]float64{"w": 100, "h": 100},
		"container_size": map[string]float64{"w": 100, "h": 100},
	}
}

func TestToolErrors(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name     string
		tool     string
		args     interface{}
		wantCode int
	}{
		{"unknown tool", "image_sharpen", map[string]interface{}{}, CodeInvalidParams},
		{"bad args type", "annotation_iou", map[string]interface{}{"a": "wide"}, CodeInvalidParams},
		{"bbox wrong length", "annotation_iou", map[string]interface{}{"a": []int{1, 2, 3}}, CodeInvalidParams},
		{"bad strategy", "annotation_correction_log", map[string]interface{}{"strategy": "magic"}, CodeInvalidParams},
		{"bad threshold", "annotation_stats", map[string]interface{}{"threshold": 1.5}, CodeInvalidParams},
		{"no target", "detection_crop", map[string]interface{}{"image_file": "a.png"}, CodeInvalidParams},
		{"degenerate bbox", "detection_crop", map[string]interface{}{"image_file": "a.png", "bbox": []int{30, 30, 10, 10}}, CodeInvalidParams},
		{"view not loaded", "viewport_screen_to_image", map[string]interface{}{"view": map[string]interface{}{}}, CodeInvalidParams},
		{"bad handle", "viewport_resize", map[string]interface{}{"view": unitView(), "bbox": []int{0, 0, 20, 20}, "handle": "up"}, CodeInvalidParams},
		{"zoom without delta", "viewport_zoom", map[string]interface{}{"view": unitView()}, CodeInvalidParams},
		{"unknown detection", "detection_crop", map[string]interface{}{"image_file": "a.png", "detection_id": "nope"}, CodeToolFailed},
		{"negative grid", "detection_overlay", map[string]interface{}{"image_file": "a.png", "grid_spacing": -5}, CodeInvalidParams},
		{"bad grid color", "detection_overlay", map[string]interface{}{"image_file": "a.png", "grid_spacing": 10, "grid_color": "teal"}, CodeInvalidParams},
		{"unknown image", "detection_overlay", map[string]interface{}{"image_file": "zzz.png"}, CodeToolFailed},
		{"missing file", "image_dimensions", map[string]interface{}{"image_file": "b.png"}, CodeToolFailed},
		{"path escape", "image_dimensions", map[string]interface{}{"image_file": "../detections.json"}, CodeToolFailed},
		{"box outside image", "detection_colors", map[string]interface{}{"image_file": "a.png", "bbox": []int{500, 500, 600, 600}}, CodeToolFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, tt.tool, tt.args)
			if resp.Error == nil {
				t.Fatal("expected an error response")
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("code: got %d, want %d (%v)", resp.Error.Code, tt.wantCode, resp.Error.Data)
			}
		})
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := New(Deps{})
	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Fatalf("got %+v, want invalid params", resp.Error)
	}
}

func TestTools_WithoutStore(t *testing.T) {
	s := New(Deps{})
	for _, tool := range []string{"annotation_correction_log", "annotation_stats", "detection_overlay", "image_dimensions"} {
		t.Run(tool, func(t *testing.T) {
			resp := callTool(t, s, tool, map[string]interface{}{"image_file": "a.png"})
			if resp.Error == nil || resp.Error.Code != CodeToolFailed {
				t.Errorf("got %+v, want tool failure", resp.Error)
			}
		})
	}
}

func TestAnnotationIoU(t *testing.T) {
	s := New(Deps{})
	var got struct {
		IoU float64 `json:"iou"`
	}
	decodeResult(t, callTool(t, s, "annotation_iou", map[string]interface{}{
		"a": []float64{0, 0, 10, 10},
		"b": []float64{5, 0, 15, 10},
	}), &got)

	if math.Abs(got.IoU-1.0/3.0) > 1e-9 {
		t.Errorf("iou: got %v, want 1/3", got.IoU)
	}
}

func TestAnnotationReconcile(t *testing.T) {
	s := New(Deps{})
	var got reconcileResult
	decodeResult(t, callTool(t, s, "annotation_reconcile", map[string]interface{}{
		"image_id": "a.png",
		"original": []map[string]interface{}{{"label": "cat", "bbox": []float64{0, 0, 10, 10}}},
		"working":  []map[string]interface{}{{"label": "dog", "bbox": []float64{1, 1, 11, 11}}},
	}), &got)

	if len(got.Assignment.Pairs) != 1 {
		t.Fatalf("pairs: got %+v, want one", got.Assignment.Pairs)
	}
	if len(got.Records) != 2 {
		t.Fatalf("records: got %+v, want label_change and bbox_adjust", got.Records)
	}
	if got.Records[0].Type != reconcile.ChangeLabelChange || got.Records[1].Type != reconcile.ChangeBBoxAdjust {
		t.Errorf("types: got %s, %s", got.Records[0].Type, got.Records[1].Type)
	}
	if got.Records[0].ImageID != "a.png" {
		t.Errorf("imageId: got %q", got.Records[0].ImageID)
	}
}

func TestAnnotationReconcile_ThresholdOverride(t *testing.T) {
	s := New(Deps{})
	args := map[string]interface{}{
		"original":  []map[string]interface{}{{"label": "cat", "bbox": []float64{0, 0, 10, 10}}},
		"working":   []map[string]interface{}{{"label": "cat", "bbox": []float64{5, 0, 15, 10}}},
		"threshold": 0.5,
	}
	var got reconcileResult
	decodeResult(t, callTool(t, s, "annotation_reconcile", args), &got)

	// IoU 1/3 matches at the default threshold but not at 0.5.
	if len(got.Records) != 2 || got.Records[0].Type != reconcile.ChangeRemove || got.Records[1].Type != reconcile.ChangeAdd {
		t.Errorf("records: got %+v, want remove then add", got.Records)
	}
}

func TestCorrectionLogAndStats(t *testing.T) {
	s, st := newTestServer(t)

	var log struct {
		Total   int                      `json:"total"`
		Count   int                      `json:"count"`
		Records []reconcile.ChangeRecord `json:"records"`
	}
	decodeResult(t, callTool(t, s, "annotation_correction_log", map[string]interface{}{}), &log)
	if log.Total != 0 {
		t.Fatalf("fresh store: got %d records, want 0", log.Total)
	}

	im, _ := st.Image("a.png")
	dets := im.Detections
	dets[0].Label = "pony"
	dets = append(dets, annotation.NewDetection("shield", "Weapons", annotation.BBox{60, 5, 80, 25}))
	if _, err := st.UpdateImage("a.png", dets); err != nil {
		t.Fatalf("UpdateImage: %v", err)
	}

	decodeResult(t, callTool(t, s, "annotation_correction_log", map[string]interface{}{}), &log)
	if log.Total != 2 || log.Count != 2 {
		t.Fatalf("got total %d count %d, want 2 and 2: %+v", log.Total, log.Count, log.Records)
	}

	decodeResult(t, callTool(t, s, "annotation_correction_log", map[string]interface{}{"category": "Weapons"}), &log)
	if log.Count != 1 || log.Records[0].Type != reconcile.ChangeAdd {
		t.Errorf("Weapons filter: got %+v, want the shield addition", log.Records)
	}

	var summary reconcile.Summary
	decodeResult(t, callTool(t, s, "annotation_stats", map[string]interface{}{}), &summary)
	if summary.TotalChanges != 2 {
		t.Errorf("TotalChanges: got %d, want 2", summary.TotalChanges)
	}
	if summary.TotalImages != 2 || summary.TotalDetections != 3 {
		t.Errorf("totals: got %d images %d detections, want 2 and 3", summary.TotalImages, summary.TotalDetections)
	}
	if len(summary.LabelFlows) != 1 || summary.LabelFlows[0].From != "horse" || summary.LabelFlows[0].To != "pony" {
		t.Errorf("flows: got %+v", summary.LabelFlows)
	}
}

func TestViewportMapping(t *testing.T) {
	s := New(Deps{})
	view := map[string]interface{}{
		"natural_size":     map[string]float64{"w": 200, "h": 100},
		"displayed_size":   map[string]float64{"w": 100, "h": 50},
		"container_size":   map[string]float64{"w": 100, "h": 50},
		"container_origin": map[string]float64{"x": 10, "y": 20},
	}

	var img struct{ X, Y float64 }
	decodeResult(t, callTool(t, s, "viewport_screen_to_image", map[string]interface{}{
		"view": view, "x": 60, "y": 45,
	}), &img)
	if math.Abs(img.X-100) > 1e-9 || math.Abs(img.Y-50) > 1e-9 {
		t.Errorf("screen_to_image: got (%v, %v), want (100, 50)", img.X, img.Y)
	}

	var screen struct{ X, Y float64 }
	decodeResult(t, callTool(t, s, "viewport_image_to_screen", map[string]interface{}{
		"view": view, "x": img.X, "y": img.Y,
	}), &screen)
	if math.Abs(screen.X-60) > 1e-9 || math.Abs(screen.Y-45) > 1e-9 {
		t.Errorf("image_to_screen: got (%v, %v), want (60, 45)", screen.X, screen.Y)
	}
}

func TestViewportZoom(t *testing.T) {
	s := New(Deps{})

	tests := []struct {
		name     string
		args     map[string]interface{}
		wantZoom float64
	}{
		{"delta", map[string]interface{}{"delta": 1.0}, 2},
		{"wheel in", map[string]interface{}{"delta_y": -3.0}, 1.1},
		{"wheel out", map[string]interface{}{"delta_y": 120.0}, 0.9},
		{"clamped", map[string]interface{}{"delta": 50.0}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := map[string]interface{}{"view": unitView(), "x": 25.0, "y": 75.0}
			for k, v := range tt.args {
				args[k] = v
			}
			var got struct {
				Zoom float64 `json:"zoom_level"`
			}
			decodeResult(t, callTool(t, s, "viewport_zoom", args), &got)
			if math.Abs(got.Zoom-tt.wantZoom) > 1e-9 {
				t.Errorf("zoom: got %v, want %v", got.Zoom, tt.wantZoom)
			}
		})
	}
}

func TestViewportResize(t *testing.T) {
	s := New(Deps{})
	var got struct {
		BBox annotation.BBox `json:"bbox"`
	}
	decodeResult(t, callTool(t, s, "viewport_resize", map[string]interface{}{
		"view":   unitView(),
		"bbox":   []float64{10, 10, 50, 50},
		"handle": "se",
		"dx":     10,
		"dy":     -35,
	}), &got)

	want := annotation.BBox{10, 10, 60, 20}
	if got.BBox.Differs(want, 1e-9) {
		t.Errorf("bbox: got %v, want %v", got.BBox, want)
	}
}

func TestViewportDrawBox(t *testing.T) {
	s := New(Deps{})

	tests := []struct {
		name     string
		end      map[string]float64
		accepted bool
	}{
		{"too narrow", map[string]float64{"x": 5, "y": 40}, false},
		{"exactly ten", map[string]float64{"x": 10, "y": 40}, false},
		{"large enough", map[string]float64{"x": 20, "y": 30}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got struct {
				Accepted bool             `json:"accepted"`
				BBox     *annotation.BBox `json:"bbox"`
			}
			decodeResult(t, callTool(t, s, "viewport_draw_box", map[string]interface{}{
				"view":  unitView(),
				"start": map[string]float64{"x": 0, "y": 0},
				"end":   tt.end,
			}), &got)
			if got.Accepted != tt.accepted {
				t.Errorf("accepted: got %v, want %v", got.Accepted, tt.accepted)
			}
			if (got.BBox != nil) != tt.accepted {
				t.Errorf("bbox presence: got %v", got.BBox)
			}
		})
	}
}

func TestImageDimensions(t *testing.T) {
	s, _ := newTestServer(t)
	var info imaging.ImageInfo
	decodeResult(t, callTool(t, s, "image_dimensions", map[string]interface{}{"image_file": "a.png"}), &info)

	if info.Width != 100 || info.Height != 80 {
		t.Errorf("size: got %dx%d, want 100x80", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("format: got %q, want png", info.Format)
	}
}

func TestDetectionCrop(t *testing.T) {
	s, st := newTestServer(t)
	id := detectionID(t, st, "a.png", "horse")

	tests := []struct {
		name  string
		args  map[string]interface{}
		wantW int
		wantH int
	}{
		{"by id", map[string]interface{}{"detection_id": id}, 20, 20},
		{"scaled", map[string]interface{}{"detection_id": id, "scale": 2}, 40, 40},
		{"padded", map[string]interface{}{"detection_id": id, "padding": 5}, 30, 30},
		{"explicit bbox", map[string]interface{}{"bbox": []float64{0, 0, 100, 10}}, 100, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.args["image_file"] = "a.png"
			var got struct {
				Width       int                   `json:"width"`
				Height      int                   `json:"height"`
				ImageBase64 string                `json:"image_base64"`
				Detection   *annotation.Detection `json:"detection"`
			}
			decodeResult(t, callTool(t, s, "detection_crop", tt.args), &got)
			if got.Width != tt.wantW || got.Height != tt.wantH {
				t.Errorf("size: got %dx%d, want %dx%d", got.Width, got.Height, tt.wantW, tt.wantH)
			}
			if got.ImageBase64 == "" {
				t.Error("missing image data")
			}
			if got.Detection == nil {
				t.Error("missing detection")
			}
		})
	}
}

func TestDetectionOverlay(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name  string
		args  map[string]interface{}
		wantW int
		wantH int
	}{
		{"full size", map[string]interface{}{}, 100, 80},
		{"thumbnail", map[string]interface{}{"max_width": 50, "max_height": 50}, 50, 40},
		{"grid", map[string]interface{}{"grid_spacing": 20, "grid_color": "#00ff00"}, 100, 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.args["image_file"] = "a.png"
			var got imaging.EncodedImage
			decodeResult(t, callTool(t, s, "detection_overlay", tt.args), &got)
			if got.Width != tt.wantW || got.Height != tt.wantH {
				t.Errorf("size: got %dx%d, want %dx%d", got.Width, got.Height, tt.wantW, tt.wantH)
			}
			if got.MimeType != "image/png" {
				t.Errorf("mime: got %q", got.MimeType)
			}
		})
	}
}

func TestDetectionHighlight(t *testing.T) {
	s, st := newTestServer(t)
	var got imaging.EncodedImage
	decodeResult(t, callTool(t, s, "detection_highlight", map[string]interface{}{
		"image_file":   "a.png",
		"detection_id": detectionID(t, st, "a.png", "sword"),
	}), &got)

	if got.Width != 100 || got.Height != 80 {
		t.Errorf("size: got %dx%d, want 100x80", got.Width, got.Height)
	}
}

func TestDetectionColors(t *testing.T) {
	s, st := newTestServer(t)
	var got struct {
		Colors []imaging.ColorFrequency `json:"colors"`
	}
	decodeResult(t, callTool(t, s, "detection_colors", map[string]interface{}{
		"image_file":   "a.png",
		"detection_id": detectionID(t, st, "a.png", "horse"),
	}), &got)

	if len(got.Colors) != 1 {
		t.Fatalf("colors: got %+v, want only blue", got.Colors)
	}
	if got.Colors[0].Percentage != 100 {
		t.Errorf("percentage: got %v, want 100", got.Colors[0].Percentage)
	}
	if got.Colors[0].HSL.H != 240 {
		t.Errorf("hue: got %d, want 240", got.Colors[0].HSL.H)
	}
}

func TestDetectionOCR(t *testing.T) {
	s, _ := newTestServer(t)
	resp := callTool(t, s, "detection_ocr", map[string]interface{}{
		"image_file": "a.png",
		"bbox":       []float64{0, 0, 100, 80},
	})
	if resp.Error != nil {
		if data, _ := resp.Error.Data.(string); strings.Contains(strings.ToLower(data), "tesseract") {
			t.Skip("Tesseract not available")
		}
	}

	var got struct {
		Language string  `json:"language"`
		Scale    float64 `json:"scale"`
	}
	decodeResult(t, resp, &got)
	if got.Language != "eng" {
		t.Errorf("language: got %q, want eng", got.Language)
	}
	if got.Scale != 1 {
		t.Errorf("scale: got %v, want 1", got.Scale)
	}
}
