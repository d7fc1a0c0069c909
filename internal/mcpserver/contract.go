package mcpserver

// DeclarationFormatContract is the canonical declaration-file format,
// exposed as an MCP resource so clients produce well-formed edits.
const DeclarationFormatContract = `# Corpus Declaration Format

The corpus is a tree of Python-syntax declaration files. Works live in
` + "`work/y<year>.py`" + ` (one file per publication year), places in
` + "`places.py`" + ` at the corpus root.

## Work declarations

Each work is one assignment at the top level of its year file:

` + "```python" + `
murta2014a = WorkSnowball(
    2014, "noWorkflow: capturing and analyzing provenance of scripts",
    display="noWorkflow",
    authors="Murta, Leonardo and Braganholo, Vanessa",
    place=IPAW,
    citations=[freire2008a, pimentel2015a],
)
` + "```" + `

Rules:

- The key is ` + "`<author><year><suffix>`" + `: the first author's last name
  lowercased, the publication year, and a letter suffix (a, b, c, ...)
  that disambiguates works by the same author in the same year.
- The first two arguments are positional: year (integer) and title
  (string). Everything else is a keyword argument.
- String attributes (title, display, authors, ...) are quoted string
  literals. ` + "`place`" + ` is a bare reference to a key declared in
  places.py. ` + "`citations`" + ` is a list of bare work keys.
- Work classes encode review state: ` + "`Work`" + ` (default),
  ` + "`WorkSnowball`" + ` (selected, references to be followed),
  ` + "`WorkOk`" + ` (reviewed and kept), ` + "`WorkUnrelated`" + `,
  ` + "`WorkNoFile`" + `, ` + "`WorkLang`" + `.

## Place declarations

` + "```python" + `
IPAW = Place("IPAW", "Workshop")
` + "```" + `

## Citations

A citation edge means the source work cites the target work. Edges are
stored in the source's ` + "`citations=[...]`" + ` list, or as standalone
` + "`Citation(source, target)`" + ` calls. Both works must already be
declared; a work never cites itself.

## Editing guarantees

Edits are structural and source-preserving: only the spans an operation
names change, and everything else in the file stays byte-identical,
including comments, whitespace, and line endings. Cross-file operations
(rename, corpus-wide citation removal) apply everywhere or nowhere.
`
