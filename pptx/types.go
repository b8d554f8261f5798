package pptx

// Trimmed OOXML presentation structures. Element matching is by local name,
// so the p/a/r namespace prefixes in the source parts are irrelevant here.

type presentationXML struct {
	SlideSize *slideSizeXML `xml:"sldSz"`
}

type slideSizeXML struct {
	Cx int `xml:"cx,attr"`
	Cy int `xml:"cy,attr"`
}

type slideXML struct {
	CSld cSldXML `xml:"cSld"`
}

// notesXML is the root of a notesSlide part.
type notesXML struct {
	CSld cSldXML `xml:"cSld"`
}

type cSldXML struct {
	SpTree spTreeXML `xml:"spTree"`
}

type spTreeXML struct {
	Shapes []shapeXML `xml:"sp"`
	Pics   []picXML   `xml:"pic"`
	Frames []frameXML `xml:"graphicFrame"`
	Groups []groupXML `xml:"grpSp"`
}

type shapeXML struct {
	NvSpPr nvSpPrXML  `xml:"nvSpPr"`
	TxBody *txBodyXML `xml:"txBody"`
}

type nvSpPrXML struct {
	NvPr nvPrXML `xml:"nvPr"`
}

type nvPrXML struct {
	Ph *phXML `xml:"ph"`
}

type phXML struct {
	Type string `xml:"type,attr"`
}

type txBodyXML struct {
	Paras []paraXML `xml:"p"`
}

type paraXML struct {
	Props  *paraPropsXML `xml:"pPr"`
	Runs   []runXML      `xml:"r"`
	Fields []fieldXML    `xml:"fld"`
}

type paraPropsXML struct {
	Level     int       `xml:"lvl,attr"`
	BuNone    *struct{} `xml:"buNone"`
	BuChar    *struct{} `xml:"buChar"`
	BuAutoNum *struct{} `xml:"buAutoNum"`
}

type runXML struct {
	Text string `xml:"t"`
}

type fieldXML struct {
	Text string `xml:"t"`
}

type picXML struct {
	BlipFill blipFillXML `xml:"blipFill"`
}

type blipFillXML struct {
	Blip blipXML `xml:"blip"`
}

type blipXML struct {
	Embed string `xml:"embed,attr"`
}

type frameXML struct {
	Graphic graphicXML `xml:"graphic"`
}

type graphicXML struct {
	Data graphicDataXML `xml:"graphicData"`
}

type graphicDataXML struct {
	Tbl *tblXML `xml:"tbl"`
}

type tblXML struct {
	Rows []tblRowXML `xml:"tr"`
}

type tblRowXML struct {
	Cells []tblCellXML `xml:"tc"`
}

type tblCellXML struct {
	HMerge string     `xml:"hMerge,attr"`
	VMerge string     `xml:"vMerge,attr"`
	TxBody *txBodyXML `xml:"txBody"`
}

type groupXML struct {
	Shapes []shapeXML `xml:"sp"`
	Pics   []picXML   `xml:"pic"`
	Groups []groupXML `xml:"grpSp"`
}

type relationshipsXML struct {
	Relationships []relationshipXML `xml:"Relationship"`
}

type relationshipXML struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
}

// corePropsXML binds the Dublin Core elements of docProps/core.xml.
type corePropsXML struct {
	Title    string `xml:"title"`
	Creator  string `xml:"creator"`
	Subject  string `xml:"subject"`
	Keywords string `xml:"keywords"`
}

type appPropsXML struct {
	Application string `xml:"Application"`
}
