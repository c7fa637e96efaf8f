package window

// WindowBuilderOption is a functional option for configuring an engineWindow.
// Use the With* functions to create options.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the window title displayed in the title bar.
//
// Parameters:
//   - title: the window title
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithWidth sets the initial client area width in pixels.
//
// Parameters:
//   - width: initial width
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithWidth(width int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.width = width
	}
}

// WithHeight sets the initial client area height in pixels.
//
// Parameters:
//   - height: initial height
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithHeight(height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.height = height
	}
}

// WithMinSize sets the smallest client area the window can be resized to.
//
// Parameters:
//   - width: minimum width in pixels
//   - height: minimum height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithMinSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.limits.minWidth = max(width, 1)
		w.limits.minHeight = max(height, 1)
		w.limits.maxWidth = max(w.limits.maxWidth, w.limits.minWidth)
		w.limits.maxHeight = max(w.limits.maxHeight, w.limits.minHeight)
	}
}

// WithMaxSize sets the largest client area the window can be resized to.
//
// Parameters:
//   - width: maximum width in pixels
//   - height: maximum height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithMaxSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.limits.maxWidth = max(width, w.limits.minWidth)
		w.limits.maxHeight = max(height, w.limits.minHeight)
	}
}

// WithHeadless creates the window without an OS surface. The message loop runs
// until Close and SetSize reports the new size immediately.
//
// Parameters:
//   - headless: whether to skip the platform window
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithHeadless(headless bool) WindowBuilderOption {
	return func(w *engineWindow) {
		w.headless = headless
	}
}
