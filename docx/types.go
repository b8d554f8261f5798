package docx

import (
	"encoding/xml"
	"io"
)

// XML shapes for the WordprocessingML parts we read. Field tags bind by
// local name; encoding/xml matches them regardless of the w: prefix.

type documentXML struct {
	Body bodyXML `xml:"body"`
}

// bodyXML preserves document order across paragraphs and tables. Decoding
// them into separate slices would lose where each table sits between
// paragraphs, so the body decodes its children by hand.
type bodyXML struct {
	Elements []bodyElement
}

type bodyElement struct {
	Para  *paragraphXML
	Table *tableXML
}

func (b *bodyXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				var p paragraphXML
				if err := d.DecodeElement(&p, &t); err != nil {
					return err
				}
				b.Elements = append(b.Elements, bodyElement{Para: &p})
			case "tbl":
				var tbl tableXML
				if err := d.DecodeElement(&tbl, &t); err != nil {
					return err
				}
				b.Elements = append(b.Elements, bodyElement{Table: &tbl})
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if t.Name == start.Name {
				return nil
			}
		}
	}
}

// paragraphXML flattens hyperlink runs into the run sequence so link text
// keeps its position in the sentence.
type paragraphXML struct {
	Props paraPropsXML
	Runs  []runXML
}

func (p *paragraphXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "pPr":
				if err := d.DecodeElement(&p.Props, &t); err != nil {
					return err
				}
			case "r":
				var r runXML
				if err := d.DecodeElement(&r, &t); err != nil {
					return err
				}
				p.Runs = append(p.Runs, r)
			case "hyperlink":
				var h hyperlinkXML
				if err := d.DecodeElement(&h, &t); err != nil {
					return err
				}
				p.Runs = append(p.Runs, h.Runs...)
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if t.Name == start.Name {
				return nil
			}
		}
	}
}

type paraPropsXML struct {
	Style      valXML   `xml:"pStyle"`
	Numbering  numPrXML `xml:"numPr"`
	OutlineLvl valXML   `xml:"outlineLvl"`
}

type numPrXML struct {
	Level valXML `xml:"ilvl"`
	NumID valXML `xml:"numId"`
}

// valXML is the pervasive <w:x w:val="..."/> attribute holder.
type valXML struct {
	Val string `xml:"val,attr"`
}

type runXML struct {
	Props  runPropsXML `xml:"rPr"`
	Text   []textXML   `xml:"t"`
	Tabs   []tagXML    `xml:"tab"`
	Breaks []breakXML  `xml:"br"`
}

type runPropsXML struct {
	Bold   *valXML `xml:"b"`
	Italic *valXML `xml:"i"`
}

type textXML struct {
	Value string `xml:",chardata"`
}

type tagXML struct{}

type breakXML struct {
	Type string `xml:"type,attr"`
}

type hyperlinkXML struct {
	Runs []runXML `xml:"r"`
}

type tableXML struct {
	Rows []tableRowXML `xml:"tr"`
}

type tableRowXML struct {
	Cells []tableCellXML `xml:"tc"`
}

type tableCellXML struct {
	Props cellPropsXML   `xml:"tcPr"`
	Paras []paragraphXML `xml:"p"`
}

type cellPropsXML struct {
	GridSpan valXML `xml:"gridSpan"`
	// VMerge distinguishes absent (nil), restart, and continuation (present
	// with empty val).
	VMerge *valXML `xml:"vMerge"`
}

// word/styles.xml

type stylesXML struct {
	Styles []styleXML `xml:"style"`
}

type styleXML struct {
	ID    string        `xml:"styleId,attr"`
	Name  valXML        `xml:"name"`
	Props stylePropsXML `xml:"pPr"`
}

type stylePropsXML struct {
	OutlineLvl valXML `xml:"outlineLvl"`
}

// word/numbering.xml

type numberingXML struct {
	AbstractNums []abstractNumXML `xml:"abstractNum"`
	Nums         []numXML         `xml:"num"`
}

type abstractNumXML struct {
	ID     string     `xml:"abstractNumId,attr"`
	Levels []levelXML `xml:"lvl"`
}

type levelXML struct {
	Level  string `xml:"ilvl,attr"`
	Format valXML `xml:"numFmt"`
}

type numXML struct {
	ID       string `xml:"numId,attr"`
	Abstract valXML `xml:"abstractNumId"`
}

// docProps/core.xml and docProps/app.xml

type corePropsXML struct {
	Title    string `xml:"title"`
	Creator  string `xml:"creator"`
	Subject  string `xml:"subject"`
	Keywords string `xml:"keywords"`
}

type appPropsXML struct {
	Application string `xml:"Application"`
}
