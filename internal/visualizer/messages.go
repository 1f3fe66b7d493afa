package visualizer

// User-facing status messages.
const (
	MsgWelcome         = "Upload a photo of your space to get started."
	MsgNotImage        = "Please upload an image file."
	MsgImageTooLarge   = "That image is too large. Please upload a smaller photo."
	MsgDecodeFailed    = "We couldn't read that image. Please try another file."
	MsgPhotoLoaded     = "Photo loaded. Select up to 2 machines to place."
	MsgSelectionLimit  = "You can select up to 2 machines at a time."
	MsgUnknownMachine  = "That machine isn't in our catalog."
	MsgNeedBackground  = "Upload a photo of your space before adding machines."
	MsgNeedSelection   = "Select at least one machine to add."
	MsgPlaced          = "Added %d machine(s). Drag to position, then scale or rotate as needed."
	MsgUnknownInstance = "That machine is no longer on the canvas."
	MsgBusyDragging    = "Finish moving the current machine first."
	MsgBadDisplaySize  = "The canvas size must be positive."
	MsgBadNumber       = "Values must be finite numbers."
	MsgExportNoPhoto   = "Upload a photo before exporting."
	MsgExportNoMachine = "Add at least one machine before exporting."
	MsgExportFailed    = "We couldn't load one of the machine images. Please try exporting again."
	MsgExported        = "Visualization downloaded as %s."
	MsgReset           = "Visualizer reset. Upload a photo to start again."
)
