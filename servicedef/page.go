package servicedef

import "html"

// SamplePage is the complete page the sample site renders for a heading.
func SamplePage(heading string) string {
	return "<!DOCTYPE html>\n<html>\n<head><title>Localization Sample</title></head>\n<body>\n<h1>" +
		html.EscapeString(heading) + "</h1>\n</body>\n</html>\n"
}
