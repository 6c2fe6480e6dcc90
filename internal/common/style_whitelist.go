package common

// StyleWhitelist is the set of computed properties carried into a capture.
// Copying these instead of every computed property keeps large captures fast.
var StyleWhitelist = []string{
	// layout & box model
	"display", "position", "top", "right", "bottom", "left", "float", "clear",
	"width", "height", "min-width", "min-height", "max-width", "max-height",
	"margin", "margin-top", "margin-right", "margin-bottom", "margin-left",
	"padding", "padding-top", "padding-right", "padding-bottom", "padding-left",
	"border", "border-width", "border-style", "border-color", "border-radius",
	"border-top-left-radius", "border-top-right-radius", "border-bottom-left-radius", "border-bottom-right-radius",
	"border-collapse", "border-spacing", "box-sizing", "overflow", "overflow-x", "overflow-y",

	// flexbox & grid
	"flex", "flex-basis", "flex-direction", "flex-flow", "flex-grow", "flex-shrink", "flex-wrap",
	"align-content", "align-items", "align-self", "justify-content", "justify-items", "justify-self",
	"gap", "row-gap", "column-gap",
	"grid", "grid-area", "grid-template", "grid-template-areas", "grid-template-rows", "grid-template-columns",
	"grid-row", "grid-row-start", "grid-row-end", "grid-column", "grid-column-start", "grid-column-end",

	// typography
	"color", "font", "font-family", "font-size", "font-weight", "font-style", "font-variant",
	"line-height", "letter-spacing", "word-spacing", "text-align", "text-decoration", "text-indent",
	"text-transform", "text-shadow", "white-space", "vertical-align",

	// visuals
	"background", "background-color", "background-image", "background-repeat", "background-position", "background-size",
	"opacity", "visibility", "box-shadow", "outline", "outline-offset", "cursor",
	"transform", "transform-origin", "transform-style", "transition", "animation", "filter",
}
