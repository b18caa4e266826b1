package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/docshelf/docshelf/pkg/httputil"
)

// docRedirect handles GET /{project}/{version}/{path} and sends the
// browser to the stored documentation URL. The version segment accepts
// the "latest" alias.
func (s *Server) docRedirect(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	projectCode := vars["project"]
	versionName := vars["version"]
	path := vars["path"]

	project, err := s.store.GetProject(r.Context(), projectCode)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	version := project.Version(versionName)
	if version == nil {
		httputil.WriteNotFound(w, "version "+versionName+" does not exist for project "+projectCode)
		return
	}

	url := version.URL
	if path != "" {
		// a stored URL pointing straight at index.html gets its file
		// segment dropped so sub-paths resolve against the doc root
		if strings.HasSuffix(url, "index.html") {
			url = strings.TrimSuffix(url, "/index.html")
		}
		url = url + "/" + path
	}

	http.Redirect(w, r, url, http.StatusFound)
}
