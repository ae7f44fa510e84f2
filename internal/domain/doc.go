// Package domain models the construction-site roster shown on the site
// dashboard ("painel da obra").
//
// # Data Source
//
// The roster lives in a Google Sheets spreadsheet maintained by the site
// office. The first row is a header; every following row describes one worker
// and the site they are currently assigned to. Cells are read as formatted
// strings, so numbers and dates arrive exactly as typed in the sheet.
//
// # Column Conventions
//
// The office sheet uses Portuguese headers. English aliases are accepted so
// that exported or translated copies of the sheet keep working:
//
//	Nome        | Name          worker name
//	Disciplina  | Discipline    functional role, drives grouping and ordering
//	Local Atual | Current Site  site (canteiro) the worker is assigned to
//	Empreiteira | Contractor    company responsible for the site
//	Município   | Municipality  municipality used for geocoding
//	Estado      | State         state (UF) used for geocoding
//	Latitude    | Lat           optional pre-resolved latitude
//
// Missing columns are treated as empty values, never as errors. Rows where
// every known column is blank are dropped at ingestion.
//
// # Board Semantics
//
// A board is the display-ready tree built by [Aggregate]:
//
//	site (north to south when latitudes are known)
//	  └─ discipline (fixed priority, unknown disciplines appended)
//	       └─ worker names (byte-wise ascending)
//
// A site with no contractor value in any of its rows is labelled "Folga"
// (idle, no assignment). Rows without a name or discipline never appear as
// workers but still take part in contractor derivation.
package domain
