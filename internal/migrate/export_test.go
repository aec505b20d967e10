// Copyright 2024 evolvedb.

package migrate

var FilterStatements = filterStatements
