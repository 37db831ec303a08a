package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        typ,
		"description": description,
	}
}

func bboxProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": description,
		"items":       map[string]interface{}{"type": "number"},
		"minItems":    4,
		"maxItems":    4,
	}
}

func detectionsProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": description,
		"items": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id":       prop("string", "Detection identifier"),
				"label":    prop("string", "Object label, e.g. horse"),
				"category": prop("string", "Label category, e.g. Animals"),
				"bbox":     bboxProp("[x1, y1, x2, y2] in image pixels"),
			},
			"required": []string{"label", "bbox"},
		},
	}
}

func viewProp() map[string]interface{} {
	size := func(d string) map[string]interface{} {
		return map[string]interface{}{
			"type":        "object",
			"description": d,
			"properties": map[string]interface{}{
				"w": prop("number", "Width in pixels"),
				"h": prop("number", "Height in pixels"),
			},
		}
	}
	point := func(d string) map[string]interface{} {
		return map[string]interface{}{
			"type":        "object",
			"description": d,
			"properties": map[string]interface{}{
				"x": prop("number", "X coordinate"),
				"y": prop("number", "Y coordinate"),
			},
		}
	}
	return map[string]interface{}{
		"type":        "object",
		"description": "Viewer state: pan, zoom and the sizes of the image and its container",
		"properties": map[string]interface{}{
			"pan_offset":       point("Pan translation in screen pixels"),
			"zoom_level":       prop("number", "Zoom factor (0.1 to 5). Default 1"),
			"natural_size":     size("Intrinsic image size"),
			"displayed_size":   size("Rendered image size at zoom 1"),
			"container_size":   size("Viewer container size"),
			"container_origin": point("Client position of the container's top-left corner"),
		},
		"required": []string{"natural_size", "displayed_size", "container_size"},
	}
}

func matchProps(props map[string]interface{}) map[string]interface{} {
	props["threshold"] = prop("number", "IoU a pair must exceed to match. Default from configuration (0.3)")
	props["strategy"] = map[string]interface{}{
		"type":        "string",
		"description": "Matching strategy. greedy follows original order; exact maximises total IoU",
		"enum":        []string{"greedy", "exact"},
	}
	return props
}

func targetProps(props map[string]interface{}) map[string]interface{} {
	props["image_file"] = prop("string", "Artwork file name as it appears in the detection set")
	props["detection_id"] = prop("string", "ID of a detection in the working set")
	props["bbox"] = bboxProp("Explicit [x1, y1, x2, y2] box, used when detection_id is absent")
	return props
}

func object(props map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Annotation analysis
		{
			Name:        "annotation_iou",
			Description: "Intersection-over-union of two [x1, y1, x2, y2] boxes. Degenerate boxes give 0.",
			InputSchema: object(map[string]interface{}{
				"a": bboxProp("First box"),
				"b": bboxProp("Second box"),
			}, "a", "b"),
		},
		{
			Name:        "annotation_reconcile",
			Description: "Compare original and corrected detections of one image. Returns the matching and the change records (label_change, bbox_adjust, remove, add).",
			InputSchema: object(matchProps(map[string]interface{}{
				"image_id": prop("string", "Image identifier copied into each record"),
				"original": detectionsProp("Detections before correction"),
				"working":  detectionsProp("Detections after correction"),
			}), "original", "working"),
		},
		{
			Name:        "annotation_correction_log",
			Description: "Reconcile the stored original and working sets for every image and return the change records, optionally filtered by category or label.",
			InputSchema: object(matchProps(map[string]interface{}{
				"category": prop("string", "Only records whose label belongs to this category. 'all' or empty disables"),
				"label":    prop("string", "Only records for this label. 'all' or empty disables"),
			})),
		},
		{
			Name:        "annotation_stats",
			Description: "Summary of the corrections: totals, added and removed counts per label, label-change flows and the most corrected images.",
			InputSchema: object(matchProps(map[string]interface{}{
				"category": prop("string", "Restrict to one category"),
				"label":    prop("string", "Restrict to one label"),
			})),
		},

		// Viewport geometry
		{
			Name:        "viewport_screen_to_image",
			Description: "Map a client (screen) point to image pixel coordinates under the given pan and zoom.",
			InputSchema: object(map[string]interface{}{
				"view": viewProp(),
				"x":    prop("number", "Client X"),
				"y":    prop("number", "Client Y"),
			}, "view", "x", "y"),
		},
		{
			Name:        "viewport_image_to_screen",
			Description: "Map an image pixel coordinate to a client (screen) point under the given pan and zoom.",
			InputSchema: object(map[string]interface{}{
				"view": viewProp(),
				"x":    prop("number", "Image X"),
				"y":    prop("number", "Image Y"),
			}, "view", "x", "y"),
		},
		{
			Name:        "viewport_zoom",
			Description: "Zoom about a client point, keeping the image point under it fixed. Returns the new view.",
			InputSchema: object(map[string]interface{}{
				"view":    viewProp(),
				"x":       prop("number", "Client X of the zoom anchor"),
				"y":       prop("number", "Client Y of the zoom anchor"),
				"delta":   prop("number", "Change in zoom level, e.g. 0.1"),
				"delta_y": prop("number", "Wheel delta; positive zooms out by one step, otherwise in"),
			}, "view", "x", "y"),
		},
		{
			Name:        "viewport_resize",
			Description: "Apply a handle drag to a box. Sides never shrink below 10 screen pixels. Returns the screen rectangle and the new image-space box.",
			InputSchema: object(map[string]interface{}{
				"view": viewProp(),
				"bbox": bboxProp("Box before the drag, in image pixels"),
				"handle": map[string]interface{}{
					"type":        "string",
					"description": "Grip being dragged",
					"enum":        []string{"nw", "ne", "sw", "se", "n", "s", "e", "w"},
				},
				"dx": prop("number", "Horizontal drag in screen pixels"),
				"dy": prop("number", "Vertical drag in screen pixels"),
			}, "view", "bbox", "handle"),
		},
		{
			Name:        "viewport_draw_box",
			Description: "Turn a drag between two client points into a proposed image-space box. Drags of 10 screen pixels or less in either direction are not accepted.",
			InputSchema: object(map[string]interface{}{
				"view":  viewProp(),
				"start": map[string]interface{}{"type": "object", "description": "Client point where the drag began"},
				"end":   map[string]interface{}{"type": "object", "description": "Client point where the drag ended"},
			}, "view", "start", "end"),
		},

		// Artwork images
		{
			Name:        "image_dimensions",
			Description: "Get the natural width, height, format and file size of an artwork image.",
			InputSchema: object(map[string]interface{}{
				"image_file": prop("string", "Artwork file name"),
			}, "image_file"),
		},
		{
			Name:        "detection_crop",
			Description: "Crop a detection out of its artwork and return it as base64-encoded PNG.",
			InputSchema: object(targetProps(map[string]interface{}{
				"padding": prop("integer", "Pixels added around the box. Default 0"),
				"scale":   prop("number", "Resize factor for the crop (up to 8). Default 1"),
			}), "image_file"),
		},
		{
			Name:        "detection_overlay",
			Description: "Draw every working detection of an artwork in its category color, with label tags, and return the result as base64-encoded PNG.",
			InputSchema: object(map[string]interface{}{
				"image_file":   prop("string", "Artwork file name"),
				"thickness":    prop("integer", "Outline width in pixels. Default 3"),
				"hide_labels":  prop("boolean", "Skip label tags"),
				"max_width":    prop("integer", "Scale the result down to fit this width"),
				"max_height":   prop("integer", "Scale the result down to fit this height"),
				"grid_spacing": prop("integer", "Draw a coordinate grid every N image pixels under the boxes"),
				"grid_color":   prop("string", "Grid color as #rrggbb. Default semi-transparent red"),
			}, "image_file"),
		},
		{
			Name:        "detection_highlight",
			Description: "Dim everything outside one detection so it stands out, and return the artwork as base64-encoded PNG.",
			InputSchema: object(targetProps(map[string]interface{}{
				"dim": prop("number", "Brightness reduction outside the box (0 to 1). Default 0.6"),
			}), "image_file"),
		},
		{
			Name:        "detection_ocr",
			Description: "Read text inside a detection (inscriptions, signatures) with Tesseract. Word boxes are in image pixels.",
			InputSchema: object(targetProps(map[string]interface{}{
				"padding":        prop("integer", "Pixels added around the box. Default 0"),
				"min_confidence": prop("number", "Drop words below this confidence (0 to 1)"),
			}), "image_file"),
		},
		{
			Name:        "detection_colors",
			Description: "Most common colors inside a detection, with hex, HSL and share of the box.",
			InputSchema: object(targetProps(map[string]interface{}{
				"count": prop("integer", "Number of colors to return. Default 5"),
			}), "image_file"),
		},
	}
}
