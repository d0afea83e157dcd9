package db

import (
	"fmt"
	"time"

	"github.com/G-Node/formtonic/formtonic/form"
	"xorm.io/xorm"
)

// FormPlugin holds the form-level settings of a form.
type FormPlugin struct {
	ID                  int64  `xorm:"pk autoincr"`
	Name                string `xorm:"varchar(50) index"`
	ErrorMessage        string `xorm:"text"`
	SuccessMessage      string `xorm:"text"`
	RedirectType        string `xorm:"varchar(20)"`
	RedirectPage        string
	RedirectURL         string
	NegativeRedirectURL string
	ConditionField      string `xorm:"varchar(512)"`
	ConditionValue      string `xorm:"varchar(512)"`
	CustomClasses       string
	Template            string
	ActionBackend       string   `xorm:"varchar(15)"`
	Language            string   `xorm:"varchar(10)"`
	Recipients          []string `xorm:"json"`
	Created             time.Time
}

// FormElement is one node of a form tree.  The root node of every form is a
// FormPlugin element without a parent.
type FormElement struct {
	ID               int64 `xorm:"pk autoincr"`
	FormID           int64 `xorm:"index"`
	ParentID         int64 `xorm:"index"`
	Position         int
	Kind             string `xorm:"varchar(30)"`
	Label            string
	Name             string
	Required         bool
	RequiredMessage  string `xorm:"text"`
	Placeholder      string
	HelpText         string `xorm:"text"`
	MinValue         *int
	MaxValue         *int
	CustomClasses    string
	TextAreaColumns  int
	TextAreaRows     int
	Options          []form.Option `xorm:"json"`
	MaxSize          int64
	MaxWidth         int
	MaxHeight        int
	SendNotification bool
	EmailSubject     string
	EmailBody        string `xorm:"text"`
	Legend           string
	Body             string `xorm:"text"`
}

func definitionRow(def *form.Definition) *FormPlugin {
	return &FormPlugin{
		ID:                  def.ID,
		Name:                def.Name,
		ErrorMessage:        def.ErrorMessage,
		SuccessMessage:      def.SuccessMessage,
		RedirectType:        string(def.RedirectType),
		RedirectPage:        def.RedirectPage,
		RedirectURL:         def.RedirectURL,
		NegativeRedirectURL: def.NegativeRedirectURL,
		ConditionField:      def.ConditionField,
		ConditionValue:      def.ConditionValue,
		CustomClasses:       def.CustomClasses,
		Template:            def.Template,
		ActionBackend:       def.ActionBackend,
		Language:            def.Language,
		Recipients:          def.Recipients,
	}
}

// Definition converts the row to a form definition.
func (fp *FormPlugin) Definition() *form.Definition {
	return &form.Definition{
		ID:                  fp.ID,
		Name:                fp.Name,
		ErrorMessage:        fp.ErrorMessage,
		SuccessMessage:      fp.SuccessMessage,
		RedirectType:        form.RedirectType(fp.RedirectType),
		RedirectPage:        fp.RedirectPage,
		RedirectURL:         fp.RedirectURL,
		NegativeRedirectURL: fp.NegativeRedirectURL,
		ConditionField:      fp.ConditionField,
		ConditionValue:      fp.ConditionValue,
		CustomClasses:       fp.CustomClasses,
		Template:            fp.Template,
		ActionBackend:       fp.ActionBackend,
		Language:            fp.Language,
		Recipients:          fp.Recipients,
	}
}

func elementRow(formID int64, n *form.Node) *FormElement {
	return &FormElement{
		ID:               n.ID,
		FormID:           formID,
		ParentID:         n.ParentID,
		Position:         n.Position,
		Kind:             string(n.Kind),
		Label:            n.Label,
		Name:             n.Name,
		Required:         n.Required,
		RequiredMessage:  n.RequiredMessage,
		Placeholder:      n.Placeholder,
		HelpText:         n.HelpText,
		MinValue:         n.MinValue,
		MaxValue:         n.MaxValue,
		CustomClasses:    n.CustomClasses,
		TextAreaColumns:  n.Columns,
		TextAreaRows:     n.Rows,
		Options:          n.Options,
		MaxSize:          n.MaxSize,
		MaxWidth:         n.MaxWidth,
		MaxHeight:        n.MaxHeight,
		SendNotification: n.SendNotification,
		EmailSubject:     n.EmailSubject,
		EmailBody:        n.EmailBody,
		Legend:           n.Legend,
		Body:             n.Body,
	}
}

// Node converts the row to a detached tree node.
func (fe *FormElement) Node() *form.Node {
	return &form.Node{
		ID:               fe.ID,
		ParentID:         fe.ParentID,
		Position:         fe.Position,
		Kind:             form.Kind(fe.Kind),
		Label:            fe.Label,
		Name:             fe.Name,
		Required:         fe.Required,
		RequiredMessage:  fe.RequiredMessage,
		Placeholder:      fe.Placeholder,
		HelpText:         fe.HelpText,
		MinValue:         fe.MinValue,
		MaxValue:         fe.MaxValue,
		CustomClasses:    fe.CustomClasses,
		Columns:          fe.TextAreaColumns,
		Rows:             fe.TextAreaRows,
		Options:          fe.Options,
		MaxSize:          fe.MaxSize,
		MaxWidth:         fe.MaxWidth,
		MaxHeight:        fe.MaxHeight,
		SendNotification: fe.SendNotification,
		EmailSubject:     fe.EmailSubject,
		EmailBody:        fe.EmailBody,
		Legend:           fe.Legend,
		Body:             fe.Body,
	}
}

// InsertForm stores a new form with all the elements of the tree rooted at
// root.  Upon successful return, the definition and every node carry their
// new IDs.
func (conn *Connection) InsertForm(def *form.Definition, root *form.Node) error {
	if root.Kind != form.FormPlugin {
		return fmt.Errorf("root element must be a %s, not %s", form.FormPlugin, root.Kind)
	}
	sess := conn.engine.NewSession()
	defer sess.Close()
	if err := sess.Begin(); err != nil {
		return err
	}

	row := definitionRow(def)
	row.ID = 0
	row.Created = time.Now().UTC()
	if _, err := sess.Insert(row); err != nil {
		sess.Rollback()
		return fmt.Errorf("insert form %q: %w", def.Name, err)
	}

	root.ParentID = 0
	root.Position = 0
	if err := insertSubtree(sess, row.ID, root); err != nil {
		sess.Rollback()
		return err
	}
	if err := sess.Commit(); err != nil {
		return err
	}
	def.ID = row.ID
	return nil
}

func insertSubtree(sess *xorm.Session, formID int64, n *form.Node) error {
	row := elementRow(formID, n)
	row.ID = 0
	if _, err := sess.Insert(row); err != nil {
		return fmt.Errorf("insert element %q: %w", n.Label, err)
	}
	n.ID = row.ID
	for idx, child := range n.Children {
		child.ParentID = n.ID
		child.Position = idx
		if err := insertSubtree(sess, formID, child); err != nil {
			return err
		}
	}
	return nil
}

// UpdateForm updates the form-level settings of an existing form.
func (conn *Connection) UpdateForm(def *form.Definition) error {
	row := definitionRow(def)
	n, err := conn.engine.ID(def.ID).Omit("created").AllCols().Update(row)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetForm retrieves the settings and the element tree of a form.
func (conn *Connection) GetForm(id int64) (*form.Definition, *form.Node, error) {
	row := new(FormPlugin)
	if has, err := conn.engine.ID(id).Get(row); err != nil {
		return nil, nil, err
	} else if !has {
		return nil, nil, ErrNotFound
	}

	elements := make([]FormElement, 0)
	if err := conn.engine.Where("form_id = ?", id).Asc("parent_id", "position", "id").Find(&elements); err != nil {
		return nil, nil, err
	}
	nodes := make([]*form.Node, len(elements))
	for idx := range elements {
		nodes[idx] = elements[idx].Node()
	}
	root, err := form.BuildTree(nodes)
	if err != nil {
		return nil, nil, fmt.Errorf("form %d: %w", id, err)
	}
	return row.Definition(), root, nil
}

// AllForms returns the settings of all forms, ordered by name.
func (conn *Connection) AllForms() ([]form.Definition, error) {
	rows := make([]FormPlugin, 0)
	if err := conn.engine.Asc("name", "id").Find(&rows); err != nil {
		return nil, err
	}
	defs := make([]form.Definition, len(rows))
	for idx := range rows {
		defs[idx] = *rows[idx].Definition()
	}
	return defs, nil
}

// DeleteForm removes a form with all its elements and notifications.
// Submissions are kept.
func (conn *Connection) DeleteForm(id int64) error {
	sess := conn.engine.NewSession()
	defer sess.Close()
	if err := sess.Begin(); err != nil {
		return err
	}
	n, err := sess.ID(id).Delete(new(FormPlugin))
	if err != nil {
		sess.Rollback()
		return err
	}
	if n == 0 {
		sess.Rollback()
		return ErrNotFound
	}
	if _, err := sess.Where("form_id = ?", id).Delete(new(FormElement)); err != nil {
		sess.Rollback()
		return err
	}
	if _, err := sess.Where("form_id = ?", id).Delete(new(EmailNotification)); err != nil {
		sess.Rollback()
		return err
	}
	return sess.Commit()
}

// InsertElement stores a single new element of the form.  The node's parent
// and position must already be set.
func (conn *Connection) InsertElement(formID int64, n *form.Node) error {
	row := elementRow(formID, n)
	row.ID = 0
	if _, err := conn.engine.Insert(row); err != nil {
		return err
	}
	n.ID = row.ID
	return nil
}

// UpdateElement stores the settings, parent and position of an existing
// element.
func (conn *Connection) UpdateElement(formID int64, n *form.Node) error {
	row := elementRow(formID, n)
	if _, err := conn.engine.ID(n.ID).AllCols().Update(row); err != nil {
		return err
	}
	return nil
}

// UpdateElements stores several elements of a form in one transaction.
func (conn *Connection) UpdateElements(formID int64, nodes []*form.Node) error {
	sess := conn.engine.NewSession()
	defer sess.Close()
	if err := sess.Begin(); err != nil {
		return err
	}
	for _, n := range nodes {
		if _, err := sess.ID(n.ID).AllCols().Update(elementRow(formID, n)); err != nil {
			sess.Rollback()
			return fmt.Errorf("update element %d: %w", n.ID, err)
		}
	}
	return sess.Commit()
}

// GetElement retrieves a single element row.
func (conn *Connection) GetElement(id int64) (*FormElement, error) {
	row := new(FormElement)
	if has, err := conn.engine.ID(id).Get(row); err != nil {
		return nil, err
	} else if !has {
		return nil, ErrNotFound
	}
	return row, nil
}

// DeleteElements removes the elements with the given IDs.
func (conn *Connection) DeleteElements(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := conn.engine.In("id", ids).Delete(new(FormElement))
	return err
}
