// Package recordio implements the binary frame format statements are
// stored in. Each frame starts with magic bytes for format validation and
// carries length-prefixed fields, so truncation and corruption are caught
// at read time.
//
// Basic usage:
//
//	stmt := &statement.Statement{
//	    Key:   []byte("user:42"),
//	    LSN:   17,
//	    Kind:  statement.Replace,
//	    Value: []byte("some row"),
//	}
//
//	var buf bytes.Buffer
//	n, err := recordio.Write(&buf, stmt)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	read, err := recordio.ReadStatement(&buf)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Size reports the encoded length without writing.
//	size := recordio.Size(stmt)
package recordio
