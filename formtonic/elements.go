// Editing of the element tree
package formtonic

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/G-Node/formtonic/formtonic/db"
	"github.com/G-Node/formtonic/formtonic/form"
)

func findNode(root *form.Node, id int64) *form.Node {
	for _, n := range form.Nested(root, true) {
		if n.ID == id {
			return n
		}
	}
	return nil
}

func parseOptionalInt(values url.Values, key string, errs map[string][]string) *int {
	v := strings.TrimSpace(values.Get(key))
	if v == "" {
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		errs[key] = append(errs[key], "Enter a whole number.")
		return nil
	}
	return &i
}

// nodeFromValues reads the settings of a new element from the editor form.
func nodeFromValues(values url.Values) (*form.Node, map[string][]string) {
	errs := make(map[string][]string)
	n := &form.Node{
		Kind:        form.Kind(values.Get("kind")),
		Label:       strings.TrimSpace(values.Get("label")),
		Name:        strings.TrimSpace(values.Get("name")),
		Required:    values.Get("required") == "on",
		Placeholder: values.Get("placeholder"),
		HelpText:    values.Get("help_text"),
		Legend:      values.Get("legend"),
		Body:        values.Get("body"),
	}
	n.MinValue = parseOptionalInt(values, "min_value", errs)
	n.MaxValue = parseOptionalInt(values, "max_value", errs)
	for _, opt := range strings.Split(values.Get("options"), ",") {
		if opt = strings.TrimSpace(opt); opt != "" {
			n.Options = append(n.Options, form.Option{Value: opt})
		}
	}
	if n.Kind == form.FormPlugin {
		errs["kind"] = append(errs["kind"], "Forms can't be nested.")
	}
	for key, msgs := range form.ValidateNode(n) {
		errs[key] = append(errs[key], msgs...)
	}
	return n, errs
}

// addElement appends a new element to a container of the form.
func (srv *Service) addElement(w http.ResponseWriter, r *http.Request, _ *db.Session) {
	id, err := idVar(r)
	if err != nil {
		srv.web.ErrorResponse(w, http.StatusBadRequest, "Invalid ID")
		return
	}
	def, root, ok := srv.loadAdminForm(w, id)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		srv.web.ErrorResponse(w, http.StatusBadRequest, "Failed to read form data")
		return
	}

	node, errs := nodeFromValues(r.PostForm)
	parentID, _ := strconv.ParseInt(r.PostForm.Get("parent"), 10, 64)
	parent := findNode(root, parentID)
	if parent == nil || !parent.Kind.IsContainer() {
		errs["parent"] = append(errs["parent"], "Select a fieldset or the form itself.")
	}
	if len(errs) > 0 {
		srv.renderFormDetail(w, http.StatusBadRequest, def, root, nil, errs)
		return
	}

	parent.Adopt(node)
	var messages []string
	if msg, renamed := form.RenameOnMove(node); renamed {
		messages = append(messages, msg)
	}
	if err := srv.db.InsertElement(def.ID, node); err != nil {
		srv.log.Errorw("Failed to add element", "form", def.ID, "error", err)
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to add element")
		return
	}
	srv.log.Infow("Element added", "form", def.ID, "element", node.ID, "kind", node.Kind)
	srv.renderFormDetail(w, http.StatusOK, def, root, messages, nil)
}

func detach(node *form.Node) *form.Node {
	parent := node.Parent()
	kept := make([]*form.Node, 0, len(parent.Children))
	for _, c := range parent.Children {
		if c != node {
			kept = append(kept, c)
		}
	}
	parent.Children = kept
	parent.Link()
	return parent
}

func insertAt(parent, node *form.Node, position int) {
	if position < 0 || position > len(parent.Children) {
		position = len(parent.Children)
	}
	children := make([]*form.Node, 0, len(parent.Children)+1)
	children = append(children, parent.Children[:position]...)
	children = append(children, node)
	children = append(children, parent.Children[position:]...)
	parent.Children = children
	parent.Link()
}

// moveElement moves an element with its subtree to another container, which
// may belong to another form.  Explicit names that clash in the target form
// are made unique.
func (srv *Service) moveElement(w http.ResponseWriter, r *http.Request, _ *db.Session) {
	id, err := idVar(r)
	if err != nil {
		srv.web.ErrorResponse(w, http.StatusBadRequest, "Invalid ID")
		return
	}
	if err := r.ParseForm(); err != nil {
		srv.web.ErrorResponse(w, http.StatusBadRequest, "Failed to read form data")
		return
	}
	row, err := srv.db.GetElement(id)
	if errors.Is(err, db.ErrNotFound) {
		srv.web.ErrorResponse(w, http.StatusNotFound, "No such element")
		return
	} else if err != nil {
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to load element")
		return
	}
	if form.Kind(row.Kind) == form.FormPlugin {
		srv.web.ErrorResponse(w, http.StatusBadRequest, "A form can't be moved")
		return
	}
	parentID, err := strconv.ParseInt(strings.TrimSpace(r.PostForm.Get("parent")), 10, 64)
	if err != nil {
		srv.web.ErrorResponse(w, http.StatusBadRequest, "Invalid parent ID")
		return
	}
	parentRow, err := srv.db.GetElement(parentID)
	if err != nil {
		srv.web.ErrorResponse(w, http.StatusBadRequest, "No such parent element")
		return
	}

	sourceDef, sourceRoot, ok := srv.loadAdminForm(w, row.FormID)
	if !ok {
		return
	}
	targetDef, targetRoot := sourceDef, sourceRoot
	if parentRow.FormID != row.FormID {
		if targetDef, targetRoot, ok = srv.loadAdminForm(w, parentRow.FormID); !ok {
			return
		}
	}
	node := findNode(sourceRoot, id)
	parent := findNode(targetRoot, parentID)
	if node == nil || parent == nil {
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Element tree is inconsistent")
		return
	}
	if !parent.Kind.IsContainer() {
		srv.web.ErrorResponse(w, http.StatusBadRequest, "Elements can only be moved into a fieldset or a form")
		return
	}
	if findNode(node, parentID) != nil {
		srv.web.ErrorResponse(w, http.StatusBadRequest, "An element can't be moved into itself")
		return
	}

	oldParent := detach(node)
	insertAt(parent, node, atoiOr(r.PostForm.Get("position"), -1))
	messages := make([]string, 0)
	for _, n := range form.Nested(node, true) {
		if msg, renamed := form.RenameOnMove(n); renamed {
			messages = append(messages, msg)
		}
	}

	changed := make([]*form.Node, 0)
	if sourceDef.ID != targetDef.ID {
		err = srv.db.UpdateElements(sourceDef.ID, oldParent.Children)
	} else if oldParent != parent {
		changed = append(changed, oldParent.Children...)
	}
	if err == nil {
		changed = append(changed, parent.Children...)
		changed = append(changed, form.Nested(node, false)...)
		err = srv.db.UpdateElements(targetDef.ID, changed)
	}
	if err != nil {
		srv.log.Errorw("Failed to move element", "element", id, "error", err)
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to move element")
		return
	}
	srv.log.Infow("Element moved", "element", id, "form", targetDef.ID, "parent", parent.ID, "position", node.Position)
	srv.renderFormDetail(w, http.StatusOK, targetDef, targetRoot, messages, nil)
}

// deleteElement removes an element with its subtree.
func (srv *Service) deleteElement(w http.ResponseWriter, r *http.Request, _ *db.Session) {
	id, err := idVar(r)
	if err != nil {
		srv.web.ErrorResponse(w, http.StatusBadRequest, "Invalid ID")
		return
	}
	row, err := srv.db.GetElement(id)
	if errors.Is(err, db.ErrNotFound) {
		srv.web.ErrorResponse(w, http.StatusNotFound, "No such element")
		return
	} else if err != nil {
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to load element")
		return
	}
	if form.Kind(row.Kind) == form.FormPlugin {
		srv.web.ErrorResponse(w, http.StatusBadRequest, "Delete the form instead")
		return
	}
	_, root, ok := srv.loadAdminForm(w, row.FormID)
	if !ok {
		return
	}
	node := findNode(root, id)
	if node == nil {
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Element tree is inconsistent")
		return
	}
	subtree := form.Nested(node, true)
	ids := make([]int64, len(subtree))
	for idx, n := range subtree {
		ids[idx] = n.ID
	}
	if err := srv.db.DeleteElements(ids); err != nil {
		srv.log.Errorw("Failed to delete element", "element", id, "error", err)
		srv.web.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete element")
		return
	}
	parent := detach(node)
	if err := srv.db.UpdateElements(row.FormID, parent.Children); err != nil {
		srv.log.Errorw("Failed to reorder elements", "form", row.FormID, "error", err)
	}
	srv.log.Infow("Element deleted", "element", id, "removed", len(ids))
	http.Redirect(w, r, fmt.Sprintf("/admin/forms/%d", row.FormID), http.StatusSeeOther)
}
