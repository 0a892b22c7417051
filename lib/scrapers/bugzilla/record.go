package bugzilla

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Bug is the subset of a bugzilla XML record that the inventory and the
// downstream transformer care about. The committed batch file remains the
// full source of truth.
type Bug struct {
	Id          int
	Summary     string
	Status      string
	Resolution  string
	Product     string
	Component   string
	Reporter    string
	AssignedTo  string
	Created     string
	Comments    []Comment
	Attachments []Attachment
}

type Comment struct {
	Author string
	When   string
	Text   string
}

type Attachment struct {
	Id       int
	Filename string
	Desc     string
	Date     string
	// true while the payload is still embedded in the batch document
	Inline bool
}

// ParseBatchFile decodes every bug record in a committed batch. A batch that
// fails to parse signals archive corruption and is never skipped over, since
// it may hide already-downloaded ids.
func ParseBatchFile(path string) ([]Bug, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, fmt.Errorf("parse batch %s: %w", path, err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "bugzilla" {
		return nil, fmt.Errorf("batch %s: not a bugzilla document", path)
	}

	var bugs []Bug
	for _, elem := range root.SelectElements("bug") {
		bug, err := parseBug(elem)
		if err != nil {
			return nil, fmt.Errorf("batch %s: %w", path, err)
		}
		bugs = append(bugs, bug)
	}
	return bugs, nil
}

func parseBug(elem *etree.Element) (Bug, error) {
	idText := childText(elem, "bug_id")
	id, err := strconv.Atoi(idText)
	if err != nil {
		return Bug{}, fmt.Errorf("bad bug_id %q: %w", idText, err)
	}

	bug := Bug{
		Id:         id,
		Summary:    childText(elem, "short_desc"),
		Status:     childText(elem, "bug_status"),
		Resolution: childText(elem, "resolution"),
		Product:    childText(elem, "product"),
		Component:  childText(elem, "component"),
		Reporter:   childText(elem, "reporter"),
		AssignedTo: childText(elem, "assigned_to"),
		Created:    childText(elem, "creation_ts"),
	}

	for _, desc := range elem.SelectElements("long_desc") {
		bug.Comments = append(bug.Comments, Comment{
			Author: childText(desc, "who"),
			When:   childText(desc, "bug_when"),
			Text:   childText(desc, "thetext"),
		})
	}

	for _, att := range elem.SelectElements("attachment") {
		attId, err := attachmentId(att)
		if err != nil {
			return Bug{}, fmt.Errorf("bug %d: %w", id, err)
		}
		inline := false
		if data := att.SelectElement("data"); data != nil && strings.TrimSpace(data.Text()) != "" {
			inline = true
		}
		bug.Attachments = append(bug.Attachments, Attachment{
			Id:       attId,
			Filename: childText(att, "filename"),
			Desc:     childText(att, "desc"),
			Date:     childText(att, "date"),
			Inline:   inline,
		})
	}

	return bug, nil
}

func childText(elem *etree.Element, tag string) string {
	child := elem.SelectElement(tag)
	if child == nil {
		return ""
	}
	return strings.TrimSpace(child.Text())
}
