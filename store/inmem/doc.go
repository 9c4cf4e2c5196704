/*
Package inmem implements the store interfaces in memory. This implementation is
meant to help get an instance of tablog up and running quickly without a need to
setup a dedicated DB. Records are lost on restart, so it is recommended for test
environments only.
*/
package inmem
