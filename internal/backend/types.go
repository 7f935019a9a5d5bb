package backend

// UploadResult is the backend's answer to a file registration.
type UploadResult struct {
	FileID          string   `json:"fileId"`
	EligibleFormats []string `json:"eligibleFormats"`
}

// ConvertResult references the output artifact of one conversion.
type ConvertResult struct {
	FileName    string `json:"fileName"`
	DownloadURL string `json:"downloadUrl"`
}

// ConvertedFile is one entry of the authenticated converted-files listing.
type ConvertedFile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Identity is the payload returned by the auth probe for a signed-in user.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type convertRequest struct {
	FileID       string `json:"fileId"`
	TargetFormat string `json:"targetFormat"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type errorResponse struct {
	Error string `json:"error"`
}
