package filetype

// DefaultSeeds is the administrative seed data shipped with the gallery,
// covering the kinds spec.md §3 enumerates. Operators may replace this
// with their own seed source and call Registry.ReloadFromSeed.
func DefaultSeeds() []Seed {
	return []Seed{
		{Ext: ".jpg", Kind: "image", Mimetype: "image/jpeg", IconFilename: "image.svg", Color: "#4caf50"},
		{Ext: ".jpeg", Kind: "image", Mimetype: "image/jpeg", IconFilename: "image.svg", Color: "#4caf50"},
		{Ext: ".png", Kind: "image", Mimetype: "image/png", IconFilename: "image.svg", Color: "#4caf50"},
		{Ext: ".gif", Kind: "image", Mimetype: "image/gif", IconFilename: "image.svg", Color: "#4caf50"},
		{Ext: ".bmp", Kind: "image", Mimetype: "image/bmp", IconFilename: "image.svg", Color: "#4caf50"},
		{Ext: ".webp", Kind: "image", Mimetype: "image/webp", IconFilename: "image.svg", Color: "#4caf50"},
		{Ext: ".tiff", Kind: "image", Mimetype: "image/tiff", IconFilename: "image.svg", Color: "#4caf50"},

		{Ext: ".pdf", Kind: "pdf", Mimetype: "application/pdf", IconFilename: "pdf.svg", Color: "#f44336"},

		{Ext: ".mp4", Kind: "movie", Mimetype: "video/mp4", IconFilename: "movie.svg", Color: "#3f51b5"},
		{Ext: ".mkv", Kind: "movie", Mimetype: "video/x-matroska", IconFilename: "movie.svg", Color: "#3f51b5"},
		{Ext: ".mov", Kind: "movie", Mimetype: "video/quicktime", IconFilename: "movie.svg", Color: "#3f51b5"},
		{Ext: ".webm", Kind: "movie", Mimetype: "video/webm", IconFilename: "movie.svg", Color: "#3f51b5"},
		{Ext: ".avi", Kind: "movie", Mimetype: "video/x-msvideo", IconFilename: "movie.svg", Color: "#3f51b5"},

		{Ext: ".zip", Kind: "archive", Mimetype: "application/zip", IconFilename: "archive.svg", Color: "#ff9800"},
		{Ext: ".cbz", Kind: "archive", Mimetype: "application/vnd.comicbook+zip", IconFilename: "archive.svg", Color: "#ff9800"},
		{Ext: ".rar", Kind: "archive", Mimetype: "application/vnd.rar", IconFilename: "archive.svg", Color: "#ff9800"},
		{Ext: ".cbr", Kind: "archive", Mimetype: "application/vnd.comicbook-rar", IconFilename: "archive.svg", Color: "#ff9800"},

		{Ext: ".txt", Kind: "text", Mimetype: "text/plain", IconFilename: "text.svg", Color: "#607d8b"},
		{Ext: ".nfo", Kind: "text", Mimetype: "text/plain", IconFilename: "text.svg", Color: "#607d8b"},

		{Ext: ".md", Kind: "markdown", Mimetype: "text/markdown", IconFilename: "markdown.svg", Color: "#607d8b"},

		{Ext: ".htm", Kind: "html", Mimetype: "text/html", IconFilename: "html.svg", Color: "#795548"},
		{Ext: ".html", Kind: "html", Mimetype: "text/html", IconFilename: "html.svg", Color: "#795548"},

		{Ext: ".url", Kind: "link", Mimetype: "text/uri-list", IconFilename: "link.svg", Color: "#2196f3"},

		{Ext: ".dir", Kind: "dir", Mimetype: "inode/directory", IconFilename: "folder.svg", Color: "#ffc107"},
	}
}
