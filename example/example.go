package example

import (
	"database/sql"
	"fmt"

	"github.com/canonical/fhirsql"
	"github.com/canonical/fhirsql/fhirpath"

	_ "github.com/mattn/go-sqlite3"
)

// example loads a few Patient resources into an in-memory SQLite database
// and evaluates FHIRPath expressions against them through generated SQL.
func example() {
	sqldb, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		panic(err)
	}
	defer sqldb.Close()

	if _, err := sqldb.Exec("CREATE TABLE patient (resource TEXT)"); err != nil {
		panic(err)
	}

	patients := []string{
		`{"resourceType": "Patient", "gender": "female", "birthDate": "1990-04-12",
		  "name": [{"use": "official", "family": "Chalmers", "given": ["Peter", "James"]}]}`,
		`{"resourceType": "Patient", "gender": "male", "birthDate": "1984-11-02",
		  "name": [{"use": "official", "family": "Windsor", "given": ["Ada"]},
		           {"use": "nickname", "given": ["Adie"]}]}`,
	}
	for _, p := range patients {
		if _, err := sqldb.Exec("INSERT INTO patient (resource) VALUES (?)", p); err != nil {
			panic(err)
		}
	}

	translator := fhirsql.NewTranslator(fhirsql.NewResolver(fhirsql.R4Lite()), fhirsql.SQLite())

	// name.where(use = 'official').given
	expr := &fhirpath.Path{
		Base: &fhirpath.Call{
			Name:   "where",
			Target: &fhirpath.Identifier{Name: "name"},
			Args: []fhirpath.Node{&fhirpath.Binary{
				Op:    fhirpath.OpEqual,
				Left:  &fhirpath.Identifier{Name: "use"},
				Right: &fhirpath.Literal{Kind: fhirpath.KindString, Value: "official"},
			}},
		},
		Segment: &fhirpath.Identifier{Name: "given"},
	}

	query, err := translator.AssembleQuery(expr, "Patient")
	if err != nil {
		panic(err)
	}

	rows, err := sqldb.Query(query)
	if err != nil {
		panic(err)
	}
	defer rows.Close()

	for rows.Next() {
		var given string
		if err := rows.Scan(&given); err != nil {
			panic(err)
		}
		fmt.Printf("%s, ", given)
	}
	if err := rows.Err(); err != nil {
		panic(err)
	}
	fmt.Println("are official given names.")

	// The same tree assembles for DuckDB without change.
	duck := fhirsql.NewTranslator(fhirsql.NewResolver(fhirsql.R4Lite()), fhirsql.DuckDB())
	query, err = duck.AssembleQuery(expr, "Patient")
	if err != nil {
		panic(err)
	}
	fmt.Println(query)
}
