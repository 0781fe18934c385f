// Package campaign manages reporting campaigns and the prospects behind
// them. A campaign is a rollup over one or more experiments targeting the
// same audience; its denormalized totals are refreshed from send data and
// never feed back into significance or winner decisions.
//
// Repository implementations live in repository/postgres/.
package campaign
