package server

type Options struct {
	Bind    string
	Port    int
	Version string
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type changePasswordRequest struct {
	Password string `json:"password"`
}

type markWatchedRequest struct {
	FilePath string `json:"file_path"`
}

type reportRequest struct {
	FilePath string `json:"file_path"`
	Comment  string `json:"comment"`
}

type playRequest struct {
	Path string `json:"path"`
}

type pickResponse struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	FilePath string `json:"file_path"`
	Show     string `json:"show"`
}

type browseFile struct {
	Name   string  `json:"name"`
	Path   string  `json:"path"`
	SizeMB float64 `json:"size_mb"`
}
