package preview

import "github.com/blacktop/go-termimg"

// renderImage produces the terminal escape sequence (Kitty/iTerm2/sixel,
// whichever the terminal supports) that draws path inline, sized to fit
// within width columns and height rows.
func renderImage(path string, width, height int) (string, error) {
	img, err := termimg.Open(path)
	if err != nil {
		return "", err
	}
	if width > 0 {
		img = img.Width(width)
	}
	if height > 0 {
		img = img.Height(height)
	}
	return img.Render()
}
